package services

import (
	"context"

	"go.uber.org/zap"

	"crm-system/internal/authz"
	"crm-system/internal/entities"
	"crm-system/internal/repositories"
	"crm-system/pkg/utils"
)

type ReportServiceInterface interface {
	LeadReport(ctx context.Context) (*entities.LeadReport, error)
}

type ReportService struct {
	repo   repositories.ReportRepositoryInterface
	logger *zap.Logger
}

func NewReportService(repo repositories.ReportRepositoryInterface, logger *zap.Logger) ReportServiceInterface {
	return &ReportService{repo: repo, logger: logger}
}

// LeadReport counts only the rows the actor may report on; managers are
// restricted to their own leads here even though they can list the tenant.
func (s *ReportService) LeadReport(ctx context.Context) (*entities.LeadReport, error) {
	actor, err := utils.GetUserFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.LeadReport(ctx, authz.ReportScope(actor, ""))
}
