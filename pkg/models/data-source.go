package models

const (
	DataSourceManual       = "manual"
	DataSourceOPFSidecar   = "opf_sidecar"
	DataSourceEPUBMetadata = "epub_metadata"
	DataSourcePDFMetadata  = "pdf_metadata"
	DataSourcePDFText      = "pdf_text"
	DataSourceFilepath     = "filepath"
	DataSourceDefault      = "default"
)

// Lower priority means that we respect it more than higher priority.
const (
	DataSourceManualPriority = iota
	DataSourceOPFSidecarPriority
	DataSourceEPUBMetadataPriority
	DataSourcePDFMetadataPriority
	DataSourcePDFTextPriority
	DataSourceFilepathPriority
	DataSourceDefaultPriority
)

var DataSourcePriority = map[string]int{
	DataSourceManual:       DataSourceManualPriority,
	DataSourceOPFSidecar:   DataSourceOPFSidecarPriority,
	DataSourceEPUBMetadata: DataSourceEPUBMetadataPriority,
	DataSourcePDFMetadata:  DataSourcePDFMetadataPriority,
	DataSourcePDFText:      DataSourcePDFTextPriority,
	DataSourceFilepath:     DataSourceFilepathPriority,
	DataSourceDefault:      DataSourceDefaultPriority,
}

const (
	CoverSourceExplicitUpload = "explicit_upload"
	CoverSourceAdjacentFile   = "sidecar_adjacent_file"
	CoverSourceEmbeddedItem   = "embedded_container_item"
)
