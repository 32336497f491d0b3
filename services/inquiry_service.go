package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kylerivers/47-industries-admin/apperrors"
	"github.com/kylerivers/47-industries-admin/events"
	"github.com/kylerivers/47-industries-admin/models"
	aws_pkg "github.com/kylerivers/47-industries-admin/pkg/aws"
	"github.com/kylerivers/47-industries-admin/providers"
	"github.com/kylerivers/47-industries-admin/repository"
	"go.uber.org/zap"
)

// InquiryService defines the service-inquiry pipeline.
type InquiryService interface {
	List(ctx context.Context, filter models.InquiryFilter, page, limit int) ([]models.ServiceInquiry, int64, *apperrors.ServiceError)
	Get(ctx context.Context, id uuid.UUID) (*models.ServiceInquiry, *apperrors.ServiceError)
	Create(ctx context.Context, req *models.CreateInquiryRequest) (*models.ServiceInquiry, *apperrors.ServiceError)
	Update(ctx context.Context, id uuid.UUID, req *models.UpdateInquiryRequest) (*models.ServiceInquiry, *apperrors.ServiceError)
	Decline(ctx context.Context, id uuid.UUID, req *models.DeclineRequest) (*models.ServiceInquiry, *apperrors.ServiceError)
	Delete(ctx context.Context, id uuid.UUID) *apperrors.ServiceError
	SuggestQuote(ctx context.Context, id uuid.UUID) (*models.QuoteSuggestion, *apperrors.ServiceError)
	SendQuote(ctx context.Context, id uuid.UUID, req *models.SendQuoteRequest, actor string) (*models.ServiceInquiry, *apperrors.ServiceError)
	Reply(ctx context.Context, id uuid.UUID, req *models.ReplyRequest, actor string) (*models.InquiryMessage, *apperrors.ServiceError)
	Thread(ctx context.Context, id uuid.UUID) ([]models.ThreadEntry, *apperrors.ServiceError)
}

type InquiryServiceConfig struct {
	StrictTransitions bool
}

type inquiryServiceImpl struct {
	repo   repository.InquiryRepository
	mailer providers.EmailSender
	cfg    InquiryServiceConfig
	now    func() time.Time
	sideEffects
}

func NewInquiryService(
	repo repository.InquiryRepository,
	mailer providers.EmailSender,
	publisher events.Publisher,
	metrics aws_pkg.MetricsRecorder,
	cfg InquiryServiceConfig,
	logger *zap.Logger,
) InquiryService {
	return &inquiryServiceImpl{
		repo:        repo,
		mailer:      mailer,
		cfg:         cfg,
		now:         time.Now,
		sideEffects: newSideEffects(publisher, metrics, logger),
	}
}

func (s *inquiryServiceImpl) List(ctx context.Context, filter models.InquiryFilter, page, limit int) ([]models.ServiceInquiry, int64, *apperrors.ServiceError) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, apperrors.Validation("status", "unknown inquiry status "+string(filter.Status))
	}
	page, limit = normalizePage(page, limit)
	inquiries, total, err := s.repo.List(ctx, filter, page, limit)
	if err != nil {
		s.logger.Error("Failed to list inquiries", zap.Error(err))
		return nil, 0, apperrors.Internal("failed to list inquiries", err)
	}
	return inquiries, total, nil
}

func (s *inquiryServiceImpl) Get(ctx context.Context, id uuid.UUID) (*models.ServiceInquiry, *apperrors.ServiceError) {
	inquiry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fromRepoErr(err, "inquiry", inquiriesListPath)
	}
	return inquiry, nil
}

// Create stores a submission from the public contact or project forms.
func (s *inquiryServiceImpl) Create(ctx context.Context, req *models.CreateInquiryRequest) (*models.ServiceInquiry, *apperrors.ServiceError) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, apperrors.Validation("name", "name is required")
	}
	if strings.TrimSpace(req.Email) == "" {
		return nil, apperrors.Validation("email", "email is required")
	}
	if strings.TrimSpace(req.Description) == "" {
		return nil, apperrors.Validation("description", "description is required")
	}

	prefix := models.ServiceInquiryPrefix
	if req.ContactForm {
		prefix = models.ContactInquiryPrefix
	}
	inquiry := &models.ServiceInquiry{
		InquiryNumber: humanNumber(prefix, s.now()),
		Name:          strings.TrimSpace(req.Name),
		Email:         strings.TrimSpace(req.Email),
		Phone:         req.Phone,
		Company:       req.Company,
		Description:   req.Description,
		Status:        models.InquiryStatusNew,
	}
	if req.Attachments != nil {
		raw, err := json.Marshal(req.Attachments)
		if err != nil {
			return nil, apperrors.Validation("attachments", "attachments could not be encoded")
		}
		inquiry.Attachments = raw
	}

	if err := s.repo.Create(ctx, inquiry); err != nil {
		s.logger.Error("Failed to create inquiry", zap.Error(err))
		return nil, apperrors.Internal("failed to save inquiry", err)
	}
	s.logger.Info("Inquiry received",
		zap.String("inquiry_id", inquiry.ID.String()),
		zap.String("inquiry_number", inquiry.InquiryNumber),
	)
	return inquiry, nil
}

func (s *inquiryServiceImpl) checkTransition(from, to models.InquiryStatus, force bool) *apperrors.ServiceError {
	if !s.cfg.StrictTransitions || force || from.CanTransitionTo(to) {
		return nil
	}
	return apperrors.Precondition(fmt.Sprintf("cannot move inquiry from %s to %s", from, to))
}

func (s *inquiryServiceImpl) Update(ctx context.Context, id uuid.UUID, req *models.UpdateInquiryRequest) (*models.ServiceInquiry, *apperrors.ServiceError) {
	if req.Status != nil && !req.Status.Valid() {
		return nil, apperrors.Validation("status", "unknown inquiry status "+string(*req.Status))
	}
	if req.EstimatedCost != nil && req.EstimatedCost.IsNegative() {
		return nil, apperrors.Validation("estimated_cost", "estimated cost cannot be negative")
	}

	inquiry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fromRepoErr(err, "inquiry", inquiriesListPath)
	}
	if svcErr := checkExpectedVersion("inquiry", inquiry.Version, req.Version); svcErr != nil {
		return nil, svcErr
	}

	if req.Status != nil {
		if svcErr := s.checkTransition(inquiry.Status, *req.Status, req.Force); svcErr != nil {
			return nil, svcErr
		}
		inquiry.Status = *req.Status
	}
	if req.AssignedTo != nil {
		inquiry.AssignedTo = emptyToNil(*req.AssignedTo)
	}
	if req.EstimatedCost != nil {
		cost := req.EstimatedCost.Round(2)
		inquiry.EstimatedCost = &cost
	}
	if req.ProposalURL != nil {
		inquiry.ProposalURL = emptyToNil(*req.ProposalURL)
	}
	if req.AdminNotes != nil {
		inquiry.AdminNotes = *req.AdminNotes
	}

	if err := s.repo.Update(ctx, inquiry); err != nil {
		return nil, fromRepoErr(err, "inquiry", inquiriesListPath)
	}
	return inquiry, nil
}

// Decline rejects the inquiry and keeps the reason in the admin notes.
func (s *inquiryServiceImpl) Decline(ctx context.Context, id uuid.UUID, req *models.DeclineRequest) (*models.ServiceInquiry, *apperrors.ServiceError) {
	inquiry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fromRepoErr(err, "inquiry", inquiriesListPath)
	}
	if svcErr := s.checkTransition(inquiry.Status, models.InquiryStatusDeclined, false); svcErr != nil {
		return nil, svcErr
	}

	inquiry.Status = models.InquiryStatusDeclined
	line := fmt.Sprintf("[%s] Declined", s.now().UTC().Format(time.RFC3339))
	if reason := strings.TrimSpace(req.Reason); reason != "" {
		line += ": " + reason
	}
	inquiry.AdminNotes = appendNote(inquiry.AdminNotes, line)

	if err := s.repo.Update(ctx, inquiry); err != nil {
		return nil, fromRepoErr(err, "inquiry", inquiriesListPath)
	}
	s.logger.Info("Inquiry declined", zap.String("inquiry_id", id.String()))
	return inquiry, nil
}

func (s *inquiryServiceImpl) Delete(ctx context.Context, id uuid.UUID) *apperrors.ServiceError {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fromRepoErr(err, "inquiry", inquiriesListPath)
	}
	s.logger.Info("Inquiry deleted", zap.String("inquiry_id", id.String()))
	return nil
}

func (s *inquiryServiceImpl) SuggestQuote(ctx context.Context, id uuid.UUID) (*models.QuoteSuggestion, *apperrors.ServiceError) {
	inquiry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fromRepoErr(err, "inquiry", inquiriesListPath)
	}
	suggestion := SuggestQuote(inquiry.ProjectDetails())
	return &suggestion, nil
}

// SendQuote emails the quote and then records it as a quote message. The
// email goes out first so a delivery failure leaves nothing behind.
func (s *inquiryServiceImpl) SendQuote(ctx context.Context, id uuid.UUID, req *models.SendQuoteRequest, actor string) (*models.ServiceInquiry, *apperrors.ServiceError) {
	if !req.Amount.IsPositive() {
		return nil, apperrors.Validation("amount", "quote amount must be greater than zero")
	}
	if req.Monthly != nil && req.Monthly.IsNegative() {
		return nil, apperrors.Validation("monthly", "monthly amount cannot be negative")
	}

	inquiry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fromRepoErr(err, "inquiry", inquiriesListPath)
	}
	if inquiry.Status == models.InquiryStatusDeclined || inquiry.Status == models.InquiryStatusCompleted {
		return nil, apperrors.Precondition(fmt.Sprintf("cannot send a quote for a %s inquiry", strings.ToLower(string(inquiry.Status))))
	}

	amount := req.Amount.Round(2)
	message := strings.TrimSpace(req.Message)
	if message == "" {
		message = "Thanks for reaching out. Based on what you shared, here is our quote for the project."
	}
	data := inquiryEmail{Name: inquiry.Name, Number: inquiry.InquiryNumber, Message: message, Amount: amount}
	msg := &models.InquiryMessage{
		Content:     message,
		IsFromAdmin: true,
		IsQuote:     true,
		QuoteAmount: &amount,
		SenderName:  actor,
	}
	if req.Monthly != nil && req.Monthly.IsPositive() {
		m := req.Monthly.Round(2)
		data.Monthly = &m
		msg.QuoteMonthly = &m
	}

	body, err := renderEmail("quote", data)
	if err != nil {
		return nil, apperrors.Internal("failed to render quote email", err)
	}
	if _, err := s.mailer.SendEmail(ctx, inquiry.Email, "Your quote from 47 Industries ("+inquiry.InquiryNumber+")", body); err != nil {
		s.logger.Error("Quote email failed", zap.String("inquiry_id", id.String()), zap.Error(err))
		return nil, fromProviderErr("failed to email quote", err)
	}

	err = recordOutcome(func(fresh bool) error {
		if fresh {
			current, err := s.repo.FindByID(ctx, id)
			if err != nil {
				return err
			}
			inquiry = current
			msg.ID = uuid.Nil
		}
		inquiry.EstimatedCost = &amount
		if inquiry.Status == models.InquiryStatusNew || inquiry.Status == models.InquiryStatusContacted {
			inquiry.Status = models.InquiryStatusProposalSent
		}
		return s.repo.AppendMessage(ctx, inquiry, msg)
	})
	if err != nil {
		s.logger.Error("Quote emailed but not recorded", zap.String("inquiry_id", id.String()), zap.Error(err))
		return nil, fromRepoErr(err, "inquiry", inquiriesListPath)
	}

	s.logger.Info("Quote sent",
		zap.String("inquiry_id", id.String()),
		zap.String("amount", amount.StringFixed(2)),
	)
	s.count(ctx, aws_pkg.MetricQuotesSent, nil)
	event := models.QuoteSentEvent{
		EventType:     models.EventQuoteSent,
		InquiryID:     inquiry.ID.String(),
		InquiryNumber: inquiry.InquiryNumber,
		Amount:        amount.StringFixed(2),
		Timestamp:     s.now().UTC(),
	}
	if msg.QuoteMonthly != nil {
		event.Monthly = msg.QuoteMonthly.StringFixed(2)
	}
	s.publishEvent(ctx, models.EventQuoteSent, inquiry.ID.String(), event)

	return inquiry, nil
}

// Reply appends to the conversation. Admin replies are emailed before they
// are stored; requester replies arrive by mail and are only recorded.
func (s *inquiryServiceImpl) Reply(ctx context.Context, id uuid.UUID, req *models.ReplyRequest, actor string) (*models.InquiryMessage, *apperrors.ServiceError) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, apperrors.Validation("content", "message content is required")
	}

	inquiry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fromRepoErr(err, "inquiry", inquiriesListPath)
	}

	msg := &models.InquiryMessage{Content: content, IsFromAdmin: !req.FromRequester}
	if req.FromRequester {
		msg.SenderName = inquiry.Name
	} else {
		msg.SenderName = actor
		body, err := renderEmail("reply", inquiryEmail{Name: inquiry.Name, Number: inquiry.InquiryNumber, Message: content})
		if err != nil {
			return nil, apperrors.Internal("failed to render reply email", err)
		}
		subject := "Re: your inquiry " + inquiry.InquiryNumber
		if _, err := s.mailer.SendEmail(ctx, inquiry.Email, subject, body); err != nil {
			s.logger.Error("Reply email failed", zap.String("inquiry_id", id.String()), zap.Error(err))
			return nil, fromProviderErr("failed to email reply", err)
		}
	}

	err = recordOutcome(func(fresh bool) error {
		if fresh {
			current, err := s.repo.FindByID(ctx, id)
			if err != nil {
				return err
			}
			inquiry = current
			msg.ID = uuid.Nil
		}
		if msg.IsFromAdmin && inquiry.Status == models.InquiryStatusNew {
			inquiry.Status = models.InquiryStatusContacted
		}
		return s.repo.AppendMessage(ctx, inquiry, msg)
	})
	if err != nil {
		s.logger.Error("Reply not recorded", zap.String("inquiry_id", id.String()), zap.Error(err))
		return nil, fromRepoErr(err, "inquiry", inquiriesListPath)
	}
	return msg, nil
}

// Thread returns the conversation, led by the inquiry's own description.
func (s *inquiryServiceImpl) Thread(ctx context.Context, id uuid.UUID) ([]models.ThreadEntry, *apperrors.ServiceError) {
	inquiry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fromRepoErr(err, "inquiry", inquiriesListPath)
	}
	msgs := inquiry.Messages
	if msgs == nil {
		if msgs, err = s.repo.ListMessages(ctx, id); err != nil {
			return nil, apperrors.Internal("failed to load messages", err)
		}
	}
	return BuildThread(inquiry, msgs), nil
}

// BuildThread orders msgs by creation time behind a synthesized entry for
// the original request.
func BuildThread(inquiry *models.ServiceInquiry, msgs []models.InquiryMessage) []models.ThreadEntry {
	sorted := append([]models.InquiryMessage(nil), msgs...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].CreatedAt.Before(sorted[j].CreatedAt) })

	thread := make([]models.ThreadEntry, 0, len(sorted)+1)
	thread = append(thread, models.ThreadEntry{
		ID:         models.ThreadInitialID,
		Content:    inquiry.Description,
		SenderName: inquiry.Name,
		CreatedAt:  inquiry.CreatedAt,
	})
	for _, m := range sorted {
		sender := m.SenderName
		if sender == "" && !m.IsFromAdmin {
			sender = inquiry.Name
		}
		thread = append(thread, models.ThreadEntry{
			ID:           m.ID.String(),
			Content:      m.Content,
			IsFromAdmin:  m.IsFromAdmin,
			SenderName:   sender,
			IsQuote:      m.IsQuote,
			QuoteAmount:  m.QuoteAmount,
			QuoteMonthly: m.QuoteMonthly,
			CreatedAt:    m.CreatedAt,
		})
	}
	return thread
}
