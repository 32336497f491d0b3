package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type InquiryStatus string

const (
	InquiryStatusNew          InquiryStatus = "NEW"
	InquiryStatusContacted    InquiryStatus = "CONTACTED"
	InquiryStatusProposalSent InquiryStatus = "PROPOSAL_SENT"
	InquiryStatusNegotiating  InquiryStatus = "NEGOTIATING"
	InquiryStatusAccepted     InquiryStatus = "ACCEPTED"
	InquiryStatusCompleted    InquiryStatus = "COMPLETED"
	InquiryStatusDeclined     InquiryStatus = "DECLINED"
)

var inquiryRank = map[InquiryStatus]int{
	InquiryStatusNew:          0,
	InquiryStatusContacted:    1,
	InquiryStatusProposalSent: 2,
	InquiryStatusNegotiating:  3,
	InquiryStatusAccepted:     4,
	InquiryStatusCompleted:    5,
}

func (s InquiryStatus) Valid() bool {
	_, ok := inquiryRank[s]
	return ok || s == InquiryStatusDeclined
}

// CanTransitionTo allows moving forward along the pipeline and declining
// from anywhere except a completed engagement.
func (s InquiryStatus) CanTransitionTo(next InquiryStatus) bool {
	if s == next {
		return true
	}
	if next == InquiryStatusDeclined {
		return s != InquiryStatusCompleted
	}
	from, ok1 := inquiryRank[s]
	to, ok2 := inquiryRank[next]
	return ok1 && ok2 && to > from
}

const (
	ContactInquiryPrefix = "CONTACT-"
	ServiceInquiryPrefix = "INQ-"
)

type ServiceInquiry struct {
	ID            uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InquiryNumber string           `gorm:"type:varchar(40);uniqueIndex;not null" json:"inquiry_number"`
	Name          string           `gorm:"type:varchar(255);not null" json:"name"`
	Email         string           `gorm:"type:varchar(255);not null;index" json:"email"`
	Phone         string           `gorm:"type:varchar(64)" json:"phone,omitempty"`
	Company       string           `gorm:"type:varchar(255)" json:"company,omitempty"`
	Description   string           `gorm:"type:text" json:"description"`
	Attachments   datatypes.JSON   `gorm:"type:jsonb" json:"attachments,omitempty"`
	Status        InquiryStatus    `gorm:"type:varchar(20);not null;default:'NEW';index" json:"status"`
	AssignedTo    *string          `gorm:"type:varchar(255)" json:"assigned_to,omitempty"`
	EstimatedCost *decimal.Decimal `gorm:"type:numeric(12,2)" json:"estimated_cost,omitempty"`
	ProposalURL   *string          `gorm:"type:varchar(1024)" json:"proposal_url,omitempty"`
	AdminNotes    string           `gorm:"type:text" json:"admin_notes"`
	Messages      []InquiryMessage `gorm:"foreignKey:InquiryID" json:"messages,omitempty"`
	Invoices      []Invoice        `gorm:"foreignKey:InquiryID" json:"invoices,omitempty"`
	Version       int              `gorm:"not null;default:1" json:"version"`
	CreatedAt     time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt   `gorm:"index" json:"-"`
}

func (i *ServiceInquiry) IsContactForm() bool {
	return strings.HasPrefix(i.InquiryNumber, ContactInquiryPrefix)
}

// ProjectDetails decodes attachments.projectDetails. A missing or malformed
// blob yields nil.
func (i *ServiceInquiry) ProjectDetails() *ProjectDetails {
	if len(i.Attachments) == 0 {
		return nil
	}
	var a InquiryAttachments
	if err := json.Unmarshal(i.Attachments, &a); err != nil {
		return nil
	}
	return a.ProjectDetails
}

// InquiryMessage rows are append-only.
type InquiryMessage struct {
	ID           uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InquiryID    uuid.UUID        `gorm:"type:uuid;not null;index" json:"inquiry_id"`
	Content      string           `gorm:"type:text;not null" json:"content"`
	IsFromAdmin  bool             `gorm:"not null;default:false" json:"is_from_admin"`
	IsQuote      bool             `gorm:"not null;default:false" json:"is_quote"`
	QuoteAmount  *decimal.Decimal `gorm:"type:numeric(12,2)" json:"quote_amount,omitempty"`
	QuoteMonthly *decimal.Decimal `gorm:"type:numeric(12,2)" json:"quote_monthly,omitempty"`
	SenderName   string           `gorm:"type:varchar(255)" json:"sender_name,omitempty"`
	CreatedAt    time.Time        `gorm:"autoCreateTime;index" json:"created_at"`
}

// InquiryAttachments is the structured blob submitted by the public forms.
type InquiryAttachments struct {
	ProjectDetails *ProjectDetails `json:"projectDetails,omitempty"`
	Files          []string        `json:"files,omitempty"`
}

type ProjectDetails struct {
	Services  []string  `json:"services"`
	Package   string    `json:"package,omitempty"`
	Features  []string  `json:"features,omitempty"`
	Pages     string    `json:"pages,omitempty"`
	Screens   string    `json:"screens,omitempty"`
	HasDesign *FlexBool `json:"hasDesign,omitempty"`
	Budget    string    `json:"budget,omitempty"`
	Timeline  string    `json:"timeline,omitempty"`
}

// FlexBool accepts JSON booleans as well as the "yes"/"no" strings the
// project form sends.
type FlexBool bool

func (b *FlexBool) UnmarshalJSON(data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case bool:
		*b = FlexBool(t)
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "yes", "true", "y":
			*b = true
		case "no", "false", "n":
			*b = false
		default:
			return fmt.Errorf("invalid boolean %q", t)
		}
	default:
		return fmt.Errorf("invalid boolean %s", string(data))
	}
	return nil
}

// ThreadEntry is one item of a conversation as shown to admins. The first
// entry is always synthesized from the inquiry description.
type ThreadEntry struct {
	ID           string           `json:"id"`
	Content      string           `json:"content"`
	IsFromAdmin  bool             `json:"is_from_admin"`
	SenderName   string           `json:"sender_name"`
	IsQuote      bool             `json:"is_quote"`
	QuoteAmount  *decimal.Decimal `json:"quote_amount,omitempty"`
	QuoteMonthly *decimal.Decimal `json:"quote_monthly,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
}

// ThreadInitialID identifies the synthesized leading entry.
const ThreadInitialID = "initial"
