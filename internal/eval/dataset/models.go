package dataset

import "strings"

// Sample is one labelled plant photo
type Sample struct {
	ImagePath      string `json:"image_path" parquet:"image_path"`
	CommonName     string `json:"common_name" parquet:"common_name"`
	ScientificName string `json:"scientific_name" parquet:"scientific_name"`
}

// Genus returns the first word of the scientific name
func (s *Sample) Genus() string {
	return Genus(s.ScientificName)
}

// Genus extracts the genus from a binomial name, e.g. "Monstera deliciosa" -> "monstera".
// The result is lower-cased for comparison.
func Genus(scientificName string) string {
	fields := strings.Fields(scientificName)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(fields[0])
}
