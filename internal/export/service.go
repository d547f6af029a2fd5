package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/evalstack/cv-evaluator/constants"
	"github.com/evalstack/cv-evaluator/internal/repository"
)

// Service is a tiny façade over the job repository that produces XLSX bytes
// for exports of completed evaluations.
type Service struct {
	repo   repository.JobRepository
	logger *slog.Logger
}

func NewService(repo repository.JobRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// ExportCompletedXLSX returns an XLSX workbook (as bytes) with one row per
// completed evaluation, newest first.
func (s *Service) ExportCompletedXLSX(ctx context.Context, limit int) ([]byte, error) {
	start := time.Now()

	jobs, err := s.repo.ListByStatus(ctx, constants.JobCompleted, limit)
	if err != nil {
		return nil, fmt.Errorf("query completed jobs: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Evaluations"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Submitted",
		"Job Title",
		"CV Match Rate",
		"CV Feedback",
		"Project Score",
		"Project Feedback",
		"Overall Summary",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, j := range jobs {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, j.CreatedAt.Format("2006-01-02 15:04"))
		write(2, j.JobTitle)
		if j.CVMatchRate != nil {
			write(3, *j.CVMatchRate)
		}
		if j.CVFeedback != nil {
			write(4, *j.CVFeedback)
		}
		if j.ProjectScore != nil {
			write(5, *j.ProjectScore)
		}
		if j.ProjectFeedback != nil {
			write(6, *j.ProjectFeedback)
		}
		if j.OverallSummary != nil {
			write(7, *j.OverallSummary)
		}
		row++
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}

	s.logger.Info("export.completed",
		"rows", row-2,
		"bytes", buf.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}
