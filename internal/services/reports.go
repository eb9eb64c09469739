package services

import (
	"context"
	"fmt"
	"time"

	"feelance/internal/ai"
	"feelance/internal/core"
	"feelance/internal/log"
)

// ReportService mirrors the diary flow for reports: interview chat and
// one-shot generation, but saved records are append-only and no chat
// log is kept between turns.
type ReportService struct {
	store  ReportStore
	gen    Generator
	logger *log.Logger
	now    func() time.Time
}

func NewReportService(store ReportStore, gen Generator, logger *log.Logger) *ReportService {
	return &ReportService{
		store:  store,
		gen:    gen,
		logger: logger.WithComponent(log.ComponentReports),
		now:    time.Now,
	}
}

// StreamChat streams an interview turn for the given transaction.
// Unlike diaries, nothing is persisted between turns.
func (s *ReportService) StreamChat(ctx context.Context, txID string, history []core.ChatMessage, onToken func(string) error) error {
	if s.gen == nil {
		return core.ErrGenerationUnavailable
	}
	if err := validateHistory(history); err != nil {
		return err
	}
	tx, err := s.store.GetTransaction(ctx, txID)
	if err != nil {
		return err
	}

	messages := withSystemPrompt(reportChatPrompt(tx), history)
	if _, err := s.gen.Stream(ctx, messages, onToken); err != nil {
		return fmt.Errorf("stream chat: %w", err)
	}
	return nil
}

// Generate produces a report title/body pair from the transaction and
// the conversation so far.
func (s *ReportService) Generate(ctx context.Context, txID string, history []core.ChatMessage) (ai.TitledDocument, error) {
	if s.gen == nil {
		return ai.TitledDocument{}, core.ErrGenerationUnavailable
	}
	tx, err := s.store.GetTransaction(ctx, txID)
	if err != nil {
		return ai.TitledDocument{}, err
	}

	messages := withSystemPrompt(reportChatPrompt(tx)+"\n"+reportGenerateKeys, history)
	content, err := s.gen.CompleteJSON(ctx, messages)
	if err != nil {
		return ai.TitledDocument{}, fmt.Errorf("generate report: %w", err)
	}

	doc, err := ai.ExtractTitledJSON(content, "report_title", "report_body")
	if err != nil {
		s.logger.WarnContext(ctx, "Report generation unparsable",
			log.FieldError, err, log.FieldTxID, txID)
		return ai.TitledDocument{}, err
	}
	s.logger.InfoContext(ctx, "Report generated",
		log.FieldOperation, log.OpGenerate, log.FieldTxID, txID)
	return doc, nil
}

// Save appends a report for the transaction. Reports have no identity
// key, so saving twice keeps both rows.
func (s *ReportService) Save(ctx context.Context, txID, userID, title, body string) (core.Report, error) {
	tx, err := s.store.GetTransaction(ctx, txID)
	if err != nil {
		return core.Report{}, err
	}

	rep := core.Report{
		UserID:      userID,
		EventName:   tx.Item,
		ReportTitle: title,
		ReportBody:  body,
		CreatedAt:   s.now().UTC().Truncate(time.Second),
	}
	if err := s.store.AppendReport(ctx, rep); err != nil {
		return core.Report{}, err
	}

	s.logger.InfoContext(ctx, "Report saved",
		log.FieldOperation, log.OpCreate, log.FieldTxID, txID, log.FieldUserID, userID)
	return rep, nil
}
