package identification

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lehigh-university-libraries/plantid/internal/models"
	"github.com/lehigh-university-libraries/plantid/internal/providers"
)

// Prompt is the fixed instruction sent with every image
const Prompt = `Analyze this plant image and return a JSON object with the following properties:
{
  "commonName": "plant common name",
  "scientificName": "plant scientific name",
  "care": {
    "water": "watering instructions",
    "sunlight": "sunlight requirements",
    "soil": "soil preferences"
  },
  "facts": "interesting facts about the plant"
}
Respond only with the JSON object, no additional text or formatting.`

// ErrInvalidResponse is returned when the model text is not a complete identification.
var ErrInvalidResponse = errors.New("invalid response format from API")

// Service identifies plants through a single provider call per image
type Service struct {
	provider    providers.Provider
	name        string
	model       string
	temperature float64
}

// NewService wraps an explicitly constructed provider
func NewService(provider providers.Provider, name, model string) *Service {
	return &Service{
		provider:    provider,
		name:        name,
		model:       model,
		temperature: 0.1,
	}
}

// Provider names the configured backend.
func (s *Service) Provider() string { return s.name }

// Model names the model sent with each request.
func (s *Service) Model() string { return s.model }

// Temperature is the sampling temperature sent with each request.
func (s *Service) Temperature() float64 { return s.temperature }

// Identify always resolves: either a populated record or the normalized error record.
func (s *Service) Identify(ctx context.Context, payload models.ImagePayload) models.IdentificationRecord {
	record, _ := s.Diagnose(ctx, payload)
	return record
}

// Diagnose behaves like Identify but also returns the underlying failure for logs and tooling.
// The record is the same one Identify would have returned.
func (s *Service) Diagnose(ctx context.Context, payload models.ImagePayload) (models.IdentificationRecord, error) {
	record, err := s.identify(ctx, payload)
	if err != nil {
		slog.Error("Error identifying plant",
			"provider", s.name,
			"model", s.model,
			"mime_type", payload.MIMEType,
			"bytes", payload.Size(),
			"err", err)
		return models.FailedIdentification(), err
	}

	slog.Info("Plant identified", "provider", s.name, "common_name", record.CommonName, "scientific_name", record.ScientificName)
	return record, nil
}

func (s *Service) identify(ctx context.Context, payload models.ImagePayload) (models.IdentificationRecord, error) {
	req := providers.Request{
		Model:       s.model,
		Temperature: s.temperature,
		Prompt:      Prompt,
		Image: providers.Image{
			Data:     base64.StdEncoding.EncodeToString(payload.Data),
			MIMEType: payload.MIMEType,
		},
	}

	text, err := s.provider.GenerateContent(ctx, req)
	if err != nil {
		return models.IdentificationRecord{}, fmt.Errorf("failed to call %s: %w", s.name, err)
	}

	return ParseRecord(text)
}

// CleanResponse removes markdown code fences the model may wrap the answer in
func CleanResponse(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	return strings.TrimSpace(text)
}

// ParseRecord decodes model output into a record; every field must be present.
func ParseRecord(text string) (models.IdentificationRecord, error) {
	var raw struct {
		CommonName     *string `json:"commonName"`
		ScientificName *string `json:"scientificName"`
		Care           *struct {
			Water    *string `json:"water"`
			Sunlight *string `json:"sunlight"`
			Soil     *string `json:"soil"`
		} `json:"care"`
		Facts *string `json:"facts"`
	}

	if err := json.Unmarshal([]byte(CleanResponse(text)), &raw); err != nil {
		return models.IdentificationRecord{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	var missing []string
	check := func(name string, v *string) {
		if v == nil {
			missing = append(missing, name)
		}
	}
	check("commonName", raw.CommonName)
	check("scientificName", raw.ScientificName)
	check("facts", raw.Facts)
	if raw.Care == nil {
		missing = append(missing, "care")
	} else {
		check("care.water", raw.Care.Water)
		check("care.sunlight", raw.Care.Sunlight)
		check("care.soil", raw.Care.Soil)
	}
	if len(missing) > 0 {
		return models.IdentificationRecord{}, fmt.Errorf("%w: missing %s", ErrInvalidResponse, strings.Join(missing, ", "))
	}

	return models.IdentificationRecord{
		CommonName:     *raw.CommonName,
		ScientificName: *raw.ScientificName,
		Care: models.CareInfo{
			Water:    *raw.Care.Water,
			Sunlight: *raw.Care.Sunlight,
			Soil:     *raw.Care.Soil,
		},
		Facts: *raw.Facts,
	}, nil
}
