package domain

// Source identifies the provider a series is fetched from.
type Source string

const (
	SourceFRED  Source = "FRED"
	SourceYahoo Source = "YAHOO"
	SourceCSV   Source = "CSV"
)

// String returns the string representation of Source.
func (s Source) String() string {
	return string(s)
}

// IsValid checks if the source is a valid value.
func (s Source) IsValid() bool {
	return s == SourceFRED || s == SourceYahoo || s == SourceCSV
}
