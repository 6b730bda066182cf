package shopee

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/thiagodapenhafernandes/appdoafiliado/internal/models"
	"github.com/thiagodapenhafernandes/appdoafiliado/internal/repository"
)

var ErrIntegrationInactive = errors.New("integration is not active")

// SyncResult is the per-run accumulator reported back to the job runner.
type SyncResult struct {
	Processed  int `json:"processed"`
	Created    int `json:"created"`
	Promoted   int `json:"promoted"`
	Duplicates int `json:"duplicates"`
	Errors     int `json:"errors"`
}

func (r *SyncResult) Summary() string {
	return fmt.Sprintf("processed %d conversions, created %d, promoted %d, %d duplicates, %d errors",
		r.Processed, r.Created, r.Promoted, r.Duplicates, r.Errors)
}

// SyncService pulls conversion pages from the affiliate API, stores the raw
// events and promotes completed ones into the unified commissions table.
type SyncService struct {
	integrations *repository.IntegrationRepository
	conversions  *repository.AffiliateConversionRepository
	commissions  *repository.CommissionRepository
	limiter      *RateLimiter
	pageLimit    int
	maxPages     int
}

func NewSyncService(
	integrations *repository.IntegrationRepository,
	conversions *repository.AffiliateConversionRepository,
	commissions *repository.CommissionRepository,
	limiter *RateLimiter,
	pageLimit, maxPages int,
) *SyncService {
	return &SyncService{
		integrations: integrations,
		conversions:  conversions,
		commissions:  commissions,
		limiter:      limiter,
		pageLimit:    pageLimit,
		maxPages:     maxPages,
	}
}

// SyncRecent syncs the incremental window. The start date overlaps the last
// sync by one hour to catch conversions that settled late.
func (s *SyncService) SyncRecent(ctx context.Context, integrationID uuid.UUID, daysBack int) (*SyncResult, error) {
	integration, err := s.integrations.GetByID(ctx, integrationID)
	if err != nil {
		return nil, err
	}
	if !integration.Active {
		return nil, ErrIntegrationInactive
	}

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -daysBack)
	if integration.LastSyncAt != nil {
		if overlapped := integration.LastSyncAt.Add(-time.Hour); overlapped.After(start) {
			start = overlapped
		}
	}

	return s.syncPeriod(ctx, integration, start, end)
}

// Backfill pulls the full historical window regardless of the last sync mark.
func (s *SyncService) Backfill(ctx context.Context, integrationID uuid.UUID, days int) (*SyncResult, error) {
	integration, err := s.integrations.GetByID(ctx, integrationID)
	if err != nil {
		return nil, err
	}
	if !integration.Active {
		return nil, ErrIntegrationInactive
	}

	end := time.Now().UTC()
	return s.syncPeriod(ctx, integration, end.AddDate(0, 0, -days), end)
}

func (s *SyncService) syncPeriod(ctx context.Context, integration *models.ShopeeIntegration, start, end time.Time) (*SyncResult, error) {
	client := NewClient(integration, s.limiter, s.pageLimit)
	result := &SyncResult{}

	slog.Info("starting shopee sync",
		"integration_id", integration.ID, "user_id", integration.UserID,
		"start", start.Format("2006-01-02"), "end", end.Format("2006-01-02"))

	page := 1
	for {
		conversionPage, err := client.FetchConversions(ctx,
			start.Format("2006-01-02"), end.Format("2006-01-02"), page)
		if err != nil {
			s.recordFailure(ctx, integration.ID, err)
			return result, err
		}

		if len(conversionPage.Conversions) > 0 {
			s.processPage(ctx, integration, conversionPage.Conversions, result)
			slog.Info("shopee sync page processed",
				"integration_id", integration.ID, "page", page,
				"conversions", len(conversionPage.Conversions))
		}

		if !conversionPage.HasNextPage || len(conversionPage.Conversions) == 0 {
			break
		}
		page++
		if page > s.maxPages {
			slog.Warn("shopee sync hit the page ceiling",
				"integration_id", integration.ID, "max_pages", s.maxPages)
			break
		}
	}

	if err := s.integrations.MarkSynced(ctx, integration.ID); err != nil {
		slog.Error("failed to mark integration synced", "integration_id", integration.ID, "error", err)
	}

	slog.Info("shopee sync finished", "integration_id", integration.ID, "summary", result.Summary())
	return result, nil
}

// processPage stores new conversions and promotes completed ones. Failures
// are counted per record; the page never aborts on one bad conversion.
func (s *SyncService) processPage(ctx context.Context, integration *models.ShopeeIntegration, page []map[string]any, result *SyncResult) {
	batch := BatchParse(integration.UserID, integration.ID, page, func(externalID string) (bool, error) {
		return s.conversions.ExistsByExternalID(ctx, integration.UserID, externalID)
	})

	result.Processed += len(page)
	result.Duplicates += len(batch.Duplicates)
	result.Errors += len(batch.Errors)
	for _, message := range batch.Errors {
		slog.Error("failed to parse conversion", "integration_id", integration.ID, "error", message)
	}

	for _, conversion := range batch.Parsed {
		if err := s.conversions.Create(ctx, conversion); err != nil {
			slog.Error("failed to store conversion",
				"integration_id", integration.ID, "external_id", conversion.ExternalID, "error", err)
			result.Errors++
			continue
		}
		result.Created++

		promoted, err := s.commissions.PromoteConversion(ctx, conversion)
		if err != nil {
			slog.Error("failed to promote conversion",
				"integration_id", integration.ID, "external_id", conversion.ExternalID, "error", err)
			result.Errors++
			continue
		}
		if promoted {
			result.Promoted++
		}
	}
}

func (s *SyncService) recordFailure(ctx context.Context, integrationID uuid.UUID, cause error) {
	message := fmt.Sprintf("sync failed: %v", cause)
	if errors.Is(cause, ErrInvalidCredentials) {
		message = "sync failed: invalid credentials"
	}
	if err := s.integrations.MarkError(ctx, integrationID, message); err != nil {
		slog.Error("failed to record sync failure", "integration_id", integrationID, "error", err)
	}
}

// TestConnection verifies a tenant's stored credentials against the API.
func (s *SyncService) TestConnection(ctx context.Context, integrationID uuid.UUID) error {
	integration, err := s.integrations.GetByID(ctx, integrationID)
	if err != nil {
		return err
	}
	client := NewClient(integration, s.limiter, s.pageLimit)
	if err := client.TestConnection(ctx); err != nil {
		s.recordFailure(ctx, integration.ID, err)
		return err
	}
	return nil
}
