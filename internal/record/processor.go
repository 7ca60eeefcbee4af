package record

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/medilink/health-exchange-api/internal/record/model"
	"github.com/medilink/health-exchange-api/internal/system/database"
	"github.com/medilink/health-exchange-api/internal/system/error/serviceerror"
	"github.com/medilink/health-exchange-api/internal/system/log"
	"github.com/medilink/health-exchange-api/internal/system/stores"
	"github.com/medilink/health-exchange-api/internal/system/utils"
)

// BundleProcessor normalizes inbound clinical bundles into health records.
type BundleProcessor interface {
	ProcessBundle(ctx context.Context, bundle *model.Bundle, fetchRequestID, patientID string) (*model.ProcessResult, *serviceerror.ServiceError)
}

type processor struct {
	stores *stores.StoreRegistry
}

func newBundleProcessor(registry *stores.StoreRegistry) BundleProcessor {
	return &processor{
		stores: registry,
	}
}

// clinicalResource carries the fields the normalizer extracts from an
// embedded resource. The full payload is stored verbatim regardless.
type clinicalResource struct {
	ResourceType       string        `json:"resourceType"`
	ID                 string        `json:"id"`
	EffectiveDateTime  string        `json:"effectiveDateTime"`
	OccurrenceDateTime string        `json:"occurrenceDateTime"`
	AuthoredOn         string        `json:"authoredOn"`
	Issued             string        `json:"issued"`
	RecordedDate       string        `json:"recordedDate"`
	Performer          []resourceRef `json:"performer"`
}

type resourceRef struct {
	Reference string       `json:"reference"`
	Display   string       `json:"display"`
	Actor     *resourceRef `json:"actor"`
}

type entryOutcome struct {
	outcome  string
	recordID string
	detail   string
}

// ProcessBundle validates the bundle's outer shape and normalizes each
// entry independently. A failing entry never aborts the rest of the bundle;
// the aggregate result satisfies processed + failed + skipped == total.
func (p *processor) ProcessBundle(ctx context.Context, bundle *model.Bundle, fetchRequestID, patientID string) (*model.ProcessResult, *serviceerror.ServiceError) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, "BundleProcessor"))

	if bundle == nil || !strings.EqualFold(bundle.ResourceType, "Bundle") {
		return nil, serviceerror.CustomServiceError(serviceerror.ValidationError,
			"Payload does not declare itself as a bundle")
	}
	if len(bundle.Entries) == 0 {
		return nil, serviceerror.CustomServiceError(serviceerror.ValidationError,
			"Bundle carries no entries")
	}

	result := &model.ProcessResult{
		Total:     len(bundle.Entries),
		RecordIDs: make([]string, 0, len(bundle.Entries)),
	}

	for i, entry := range bundle.Entries {
		outcome := p.processEntry(ctx, entry, fetchRequestID, patientID)
		switch outcome.outcome {
		case model.OutcomeSuccess:
			result.Processed++
			result.RecordIDs = append(result.RecordIDs, outcome.recordID)
		case model.OutcomeSkipped:
			result.Skipped++
		default:
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("entry %d: %s", i, outcome.detail))
		}
	}

	logger.Info("Bundle processed",
		log.String("fetch_request_id", fetchRequestID),
		log.Int("total", result.Total),
		log.Int("processed", result.Processed),
		log.Int("failed", result.Failed),
		log.Int("skipped", result.Skipped),
	)

	return result, nil
}

// processEntry normalizes one bundle entry. Unexpected panics are contained
// here so a single bad entry cannot unwind the batch.
func (p *processor) processEntry(ctx context.Context, entry model.BundleEntry, fetchRequestID, patientID string) (outcome entryOutcome) {
	start := time.Now()
	externalRecordID := ""

	defer func() {
		if r := recover(); r != nil {
			outcome = entryOutcome{outcome: model.OutcomeFailed, detail: fmt.Sprintf("unexpected failure: %v", r)}
			p.writeProcessingLog(ctx, fetchRequestID, externalRecordID, model.StageStore, model.OutcomeFailed,
				start, outcome.detail)
		}
	}()

	if len(entry.Resource) == 0 {
		detail := "entry has no embedded clinical resource"
		p.writeProcessingLog(ctx, fetchRequestID, "", model.StageValidate, model.OutcomeFailed, start, detail)
		return entryOutcome{outcome: model.OutcomeFailed, detail: detail}
	}

	var resource clinicalResource
	if err := json.Unmarshal(entry.Resource, &resource); err != nil {
		detail := fmt.Sprintf("resource is not valid JSON: %v", err)
		p.writeProcessingLog(ctx, fetchRequestID, "", model.StageParse, model.OutcomeFailed, start, detail)
		return entryOutcome{outcome: model.OutcomeFailed, detail: detail}
	}
	if resource.ID == "" {
		detail := "resource has no identifier"
		p.writeProcessingLog(ctx, fetchRequestID, "", model.StageValidate, model.OutcomeFailed, start, detail)
		return entryOutcome{outcome: model.OutcomeFailed, detail: detail}
	}
	externalRecordID = resource.ID

	recordType := model.MapResourceKind(resource.ResourceType)
	recordDate := extractRecordDate(&resource)
	providerID, providerName := extractProvider(&resource)

	payload := string(entry.Resource)
	now := utils.GetCurrentTimeMillis()

	record := &model.HealthRecord{
		RecordID:         utils.GenerateUUID(),
		FetchRequestID:   &fetchRequestID,
		PatientID:        patientID,
		ExternalRecordID: externalRecordID,
		RecordType:       recordType,
		RecordDate:       recordDate,
		ProviderID:       providerID,
		ProviderName:     providerName,
		Payload:          payload,
		Source:           model.SourceExchange,
		Status:           model.StatusActive,
		Checksum:         utils.ComputeChecksum([]byte(payload)),
		EncryptionKeyRef: entry.EncryptionKeyRef,
		CreatedTime:      now,
		UpdatedTime:      now,
	}

	recordStore := p.stores.Record.(RecordStore)

	if err := recordStore.Create(ctx, record); err != nil {
		if database.IsDuplicateKeyError(err) {
			// Same external record already stored for this patient.
			detail := "duplicate delivery, record already stored"
			p.writeProcessingLog(ctx, fetchRequestID, externalRecordID, model.StageStore, model.OutcomeSkipped, start, detail)
			return entryOutcome{outcome: model.OutcomeSkipped, detail: detail}
		}
		detail := fmt.Sprintf("failed to persist record: %v", err)
		p.writeProcessingLog(ctx, fetchRequestID, externalRecordID, model.StageStore, model.OutcomeFailed, start, detail)
		return entryOutcome{outcome: model.OutcomeFailed, detail: detail}
	}

	p.writeProcessingLog(ctx, fetchRequestID, externalRecordID, model.StageStore, model.OutcomeSuccess, start, "")
	return entryOutcome{outcome: model.OutcomeSuccess, recordID: record.RecordID}
}

func (p *processor) writeProcessingLog(ctx context.Context, fetchRequestID, externalRecordID, stage, outcome string, start time.Time, detail string) {
	recordStore := p.stores.Record.(RecordStore)

	logEntry := &model.ProcessingLog{
		LogID:            utils.GenerateUUID(),
		FetchRequestID:   fetchRequestID,
		ExternalRecordID: externalRecordID,
		Stage:            stage,
		Outcome:          outcome,
		LatencyMs:        time.Since(start).Milliseconds(),
		CreatedTime:      utils.GetCurrentTimeMillis(),
	}
	if detail != "" {
		logEntry.Detail = &detail
	}

	if err := recordStore.CreateProcessingLog(ctx, logEntry); err != nil {
		log.GetLogger().With(log.String(log.LoggerKeyComponentName, "BundleProcessor")).
			Error("Failed to write processing log", log.Error(err))
	}
}

// extractRecordDate prefers an explicit effective/occurred timestamp and
// falls back to issued/recorded, then to the time of ingestion.
func extractRecordDate(resource *clinicalResource) int64 {
	candidates := []string{
		resource.EffectiveDateTime,
		resource.OccurrenceDateTime,
		resource.AuthoredOn,
		resource.Issued,
		resource.RecordedDate,
	}
	for _, candidate := range candidates {
		if millis, ok := parseClinicalDate(candidate); ok {
			return millis
		}
	}
	return utils.GetCurrentTimeMillis()
}

var clinicalDateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseClinicalDate(value string) (int64, bool) {
	if value == "" {
		return 0, false
	}
	for _, layout := range clinicalDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return utils.TimeToMillis(t), true
		}
	}
	return 0, false
}

func extractProvider(resource *clinicalResource) (*string, *string) {
	if len(resource.Performer) == 0 {
		return nil, nil
	}

	ref := resource.Performer[0]
	if ref.Actor != nil {
		ref = *ref.Actor
	}

	var providerID, providerName *string
	if ref.Reference != "" {
		id := ref.Reference
		providerID = &id
	}
	if ref.Display != "" {
		name := ref.Display
		providerName = &name
	}
	return providerID, providerName
}
