package binder

import (
	"encoding/json"
	"net/http"
	"net/url"
	"reflect"
	"regexp"
	"strings"

	"github.com/bookdrop/bookdrop/pkg/errcodes"
	"github.com/creasty/defaults"
	"github.com/go-playground/mold/v4"
	"github.com/go-playground/mold/v4/modifiers"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
)

var unknownFieldsRE = regexp.MustCompile(`^json: unknown field "(.*)"$`)

// Binder is a custom struct that implements the Echo Binder interface. It binds
// to a struct, uses mold to clean up the params, and validator to validate
// them.
type Binder struct {
	queryDecoder *schema.Decoder
	formDecoder  *schema.Decoder
	conform      *mold.Transformer
	validate     *validator.Validate
}

// New initializes a new Binder instance with the appropriate validation
// functions registered.
func New() (*Binder, error) {
	queryDecoder := schema.NewDecoder()
	queryDecoder.SetAliasTag("query")
	formDecoder := schema.NewDecoder()
	formDecoder.SetAliasTag("form")
	conform := modifiers.New()
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = validate.RegisterValidation(langtag, langTagValidator)

	return &Binder{queryDecoder, formDecoder, conform, validate}, nil
}

// Bind decodes the request into i, then trims it with mod tags, fills
// defaults and validates it. JSON bodies, url-encoded and multipart forms are
// accepted; GET and DELETE requests without a body bind their query string.
func (b *Binder) Bind(i interface{}, c echo.Context) error {
	req := c.Request()

	var err error
	switch {
	case req.ContentLength != 0:
		err = b.bindBody(i, c)
	case req.Method == http.MethodGet || req.Method == http.MethodDelete:
		err = b.decodeQuery(i, c.QueryParams(), b.queryDecoder)
	case allowsEmptyBody(c):
	default:
		err = errcodes.EmptyRequestBody()
	}
	if err != nil {
		return err
	}

	if err := b.conform.Struct(req.Context(), i); err != nil {
		return errors.WithStack(err)
	}

	if err := defaults.Set(i); err != nil {
		return errors.WithStack(err)
	}

	if err := b.validate.Struct(i); err != nil {
		var errs validator.ValidationErrors
		if errors.As(err, &errs) && len(errs) > 0 {
			return errcodes.ValidationError(formatValidationError(errs[0]))
		}
		return errors.WithStack(err)
	}
	return nil
}

func (b *Binder) bindBody(i interface{}, c echo.Context) error {
	ctype := c.Request().Header.Get(echo.HeaderContentType)
	switch {
	case strings.HasPrefix(ctype, echo.MIMEApplicationJSON):
		return b.bindJSON(i, c)
	case strings.HasPrefix(ctype, echo.MIMEApplicationForm):
		return b.bindForm(i, c, false)
	case strings.HasPrefix(ctype, echo.MIMEMultipartForm):
		return b.bindForm(i, c, true)
	default:
		return errcodes.UnsupportedMediaType()
	}
}

func (b *Binder) bindJSON(i interface{}, c echo.Context) error {
	req := c.Request()
	defer req.Body.Close()

	dec := json.NewDecoder(req.Body)
	if disallow, ok := c.Get("disallow_unknown_fields").(bool); !ok || disallow {
		dec.DisallowUnknownFields()
	}
	err := dec.Decode(i)
	if err == nil {
		return nil
	}

	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return errors.WithStack(err)
	}
	if matches := unknownFieldsRE.FindStringSubmatch(err.Error()); len(matches) > 1 {
		return errcodes.UnknownParameter(matches[1])
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return errcodes.ValidationTypeError(formatUnmarshalTypeError(typeErr))
	}

	logger.FromEchoContext(c).Err(err).Error("unknown json decode error")
	return errcodes.MalformedPayload()
}

// bindForm decodes form fields with the form decoder. For multipart bodies
// the first file of every part is collected into the payload's FormFiles
// map, keyed by form field name.
func (b *Binder) bindForm(i interface{}, c echo.Context, multipart bool) error {
	params, err := c.FormParams()
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return errors.WithStack(err)
		}
		return errcodes.MalformedPayload()
	}
	if err := b.decodeQuery(i, params, b.formDecoder); err != nil {
		return err
	}
	if !multipart {
		return nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		return errors.WithStack(err)
	}
	field := reflect.ValueOf(i).Elem().FieldByName("FormFiles")
	if !field.IsValid() || !field.CanSet() || len(form.File) == 0 {
		return nil
	}
	files := reflect.MakeMap(field.Type())
	for key, headers := range form.File {
		if len(headers) > 0 {
			files.SetMapIndex(reflect.ValueOf(key), reflect.ValueOf(headers[0]))
		}
	}
	field.Set(files)
	return nil
}

func allowsEmptyBody(c echo.Context) bool {
	allow, ok := c.Get("disallow_empty_body").(bool)
	return ok && !allow
}

func (b *Binder) decodeQuery(i interface{}, params url.Values, decoder *schema.Decoder) error {
	err := decoder.Decode(i, params)
	if err == nil {
		return nil
	}

	// Only the first problem is reported.
	var multi schema.MultiError
	if errors.As(err, &multi) {
		for _, first := range multi {
			err = first
			break
		}
	}

	var conversion schema.ConversionError
	if errors.As(err, &conversion) {
		return errcodes.ValidationTypeError(formatSchemaConversionError(conversion))
	}
	var unknown schema.UnknownKeyError
	if errors.As(err, &unknown) {
		return errcodes.UnknownParameter(unknown.Key)
	}
	return errors.WithStack(err)
}
