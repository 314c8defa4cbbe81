package metrics

import (
	"strings"

	"github.com/lehigh-university-libraries/plantid/internal/eval/dataset"
	"github.com/lehigh-university-libraries/plantid/internal/models"
)

// Comparison scores one identification against its label
type Comparison struct {
	ScientificMatch bool
	GenusMatch      bool
	CommonMatch     bool
}

// Compare matches names case-insensitively after collapsing whitespace.
// A failed record matches nothing.
func Compare(sample dataset.Sample, record models.IdentificationRecord) Comparison {
	if record.Failed() {
		return Comparison{}
	}

	genus := dataset.Genus(record.ScientificName)
	return Comparison{
		ScientificMatch: normalize(record.ScientificName) != "" && normalize(record.ScientificName) == normalize(sample.ScientificName),
		GenusMatch:      genus != "" && genus == sample.Genus(),
		CommonMatch:     normalize(record.CommonName) != "" && normalize(record.CommonName) == normalize(sample.CommonName),
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
