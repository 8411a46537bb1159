package request

type OTUField int

const (
	OTUFieldLine OTUField = iota
	OTUFieldName
	OTUFieldTotalReads
)

// String returns the column the field sorts on.
func (s OTUField) String() string {
	switch s {
	case OTUFieldName:
		return "name"
	case OTUFieldTotalReads:
		return "total_reads"
	default:
		return "line_no"
	}
}

func NewOTUField(field string) OTUField {
	switch field {
	case "name":
		return OTUFieldName
	case "reads", "total_reads":
		return OTUFieldTotalReads
	default:
		return OTUFieldLine // clustering-file order
	}
}
