// Package payer manages third-party coverage records (IVAC and PAE) and
// answers the billing question: for a client's nth appointment, who pays
// what.
//
// Rule-chain evaluation itself lives in internal/coverage and is pure;
// this service adds the stateful parts: payer lookup, the PAE budget
// ceiling, usage counters and claim submission.
package payer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/oveliahealth/ovelia_backend/internal/coverage"
	"github.com/oveliahealth/ovelia_backend/internal/model"
	"github.com/oveliahealth/ovelia_backend/pkg/claims"
	"github.com/oveliahealth/ovelia_backend/pkg/crypto"
)

// BudgetWarningPercent is the usage level at which a PAE budget is
// reported as running low.
const BudgetWarningPercent = 80

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

type CreateIVACRequest struct {
	ClientID     uuid.UUID
	FileNumber   string
	IncidentDate *time.Time
	ExpiryDate   *time.Time
}

type CreatePAERequest struct {
	ClientID             uuid.UUID
	FileNumber           string
	ProviderName         string
	EmployerName         string
	ReimbursementPercent int
	MaxAmountCents       int64
	ExpiryDate           time.Time
	Rules                []coverage.Rule
}

type UpdatePayerRequest struct {
	FileNumber *string

	// IVAC only
	IncidentDate *time.Time

	ExpiryDate *time.Time

	// PAE only
	ProviderName         *string
	EmployerName         *string
	ReimbursementPercent *int
	MaxAmountCents       *int64
}

// Evaluation is the outcome of pricing one appointment under a payer.
type Evaluation struct {
	Index int                `json:"index"`
	Split coverage.CostSplit `json:"split"`

	PayerCents  int64 `json:"payer_cents"`
	ClientCents int64 `json:"client_cents"`

	// BudgetCapped reports that the payer share was reduced because the
	// PAE budget ceiling left less than the rule chain's share.
	BudgetCapped bool `json:"budget_capped,omitempty"`
}

// BudgetStatus describes how much of a PAE budget remains.
type BudgetStatus struct {
	MaxAmountCents   int64 `json:"max_amount_cents"`
	AmountUsedCents  int64 `json:"amount_used_cents"`
	RemainingCents   int64 `json:"remaining_cents"`
	UsedPercent      int   `json:"used_percent"`
	AppointmentsUsed int   `json:"appointments_used"`

	// Warning is set once usage reaches BudgetWarningPercent.
	Warning bool `json:"warning"`
}

type SubmitClaimRequest struct {
	AmountCents int64
	ServiceDate time.Time
	Description string
}

// ---------------------------------------------------------------------------
// Service interface
// ---------------------------------------------------------------------------

type Service interface {
	// CreateIVAC attaches IVAC coverage to a client. Reimbursement is the
	// fixed program rate, so no percentage is taken here.
	CreateIVAC(ctx context.Context, clinicID uuid.UUID, req CreateIVACRequest) (*model.ExternalPayer, error)

	// CreatePAE attaches employee-assistance coverage with its budget and
	// coverage rule chain.
	CreatePAE(ctx context.Context, clinicID uuid.UUID, req CreatePAERequest) (*model.ExternalPayer, error)

	GetByID(ctx context.Context, clinicID, payerID uuid.UUID) (*model.ExternalPayer, error)
	ListForClient(ctx context.Context, clinicID, clientID uuid.UUID, includeInactive bool) ([]model.ExternalPayer, error)
	Update(ctx context.Context, clinicID, payerID uuid.UUID, req UpdatePayerRequest) (*model.ExternalPayer, error)

	// ReplaceRules swaps the whole PAE rule chain after validating it.
	ReplaceRules(ctx context.Context, clinicID, payerID uuid.UUID, rules []coverage.Rule) (*model.ExternalPayer, error)

	// Deactivate is the normal way coverage ends; the record stays for
	// history. Reactivate re-enables it as long as the one-active-per-kind
	// rule still holds. Delete removes the row and exists for data-entry
	// mistakes.
	Deactivate(ctx context.Context, clinicID, payerID uuid.UUID) error
	Reactivate(ctx context.Context, clinicID, payerID uuid.UUID) error
	Delete(ctx context.Context, clinicID, payerID uuid.UUID) error

	// EvaluateAppointment prices the client's nth appointment without
	// recording anything. index is 1-based.
	EvaluateAppointment(ctx context.Context, clinicID, payerID uuid.UUID, index int, serviceName string, feeCents int64) (*Evaluation, error)

	// RecordBilledAppointment prices the next appointment under this payer
	// and advances the usage counters in the same transaction.
	RecordBilledAppointment(ctx context.Context, clinicID, payerID uuid.UUID, serviceName string, serviceDate time.Time, feeCents int64) (*Evaluation, *BudgetStatus, error)

	BudgetStatus(ctx context.Context, clinicID, payerID uuid.UUID) (*BudgetStatus, error)

	// RuleChainSummary renders the payer's coverage in words, for client
	// intake sheets and the payer detail screen.
	RuleChainSummary(ctx context.Context, clinicID, payerID uuid.UUID) (string, error)

	// SubmitClaim sends a reimbursement claim to the provincial portal and
	// returns the claim reference.
	SubmitClaim(ctx context.Context, clinicID, payerID uuid.UUID, req SubmitClaimRequest) (string, error)

	// RevealFileNumber decrypts the payer file number for letters and
	// claim paperwork.
	RevealFileNumber(ctx context.Context, clinicID, payerID uuid.UUID) (string, error)
}

type payerService struct {
	db     *gorm.DB
	box    *crypto.Box
	portal *claims.Client
}

// New builds the payer service. portal may be nil when claim submission
// is not configured.
func New(db *gorm.DB, box *crypto.Box, portal *claims.Client) Service {
	return &payerService{db: db, box: box, portal: portal}
}

// ---------------------------------------------------------------------------
// Create
// ---------------------------------------------------------------------------

func (s *payerService) CreateIVAC(ctx context.Context, clinicID uuid.UUID, req CreateIVACRequest) (*model.ExternalPayer, error) {
	if req.FileNumber == "" {
		return nil, ErrMissingFileNumber
	}
	if err := s.checkClient(ctx, clinicID, req.ClientID); err != nil {
		return nil, err
	}
	if err := s.checkNoActivePayer(ctx, clinicID, req.ClientID, model.PayerIVAC); err != nil {
		return nil, err
	}

	enc, err := s.box.Encrypt(req.FileNumber)
	if err != nil {
		return nil, fmt.Errorf("encrypt file number: %w", err)
	}

	p := &model.ExternalPayer{
		ClinicID:            clinicID,
		ClientID:            req.ClientID,
		Kind:                model.PayerIVAC,
		FileNumberEncrypted: enc,
		IsActive:            true,
		IncidentDate:        req.IncidentDate,
		ExpiryDate:          req.ExpiryDate,
	}
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return nil, fmt.Errorf("create ivac payer: %w", err)
	}
	return p, nil
}

func (s *payerService) CreatePAE(ctx context.Context, clinicID uuid.UUID, req CreatePAERequest) (*model.ExternalPayer, error) {
	if req.FileNumber == "" {
		return nil, ErrMissingFileNumber
	}
	if req.ExpiryDate.IsZero() {
		return nil, ErrMissingExpiry
	}
	if req.ReimbursementPercent < 0 || req.ReimbursementPercent > 100 {
		return nil, ErrInvalidPercent
	}
	if req.MaxAmountCents < 0 {
		return nil, ErrInvalidAmount
	}
	if err := coverage.ValidateChain(req.Rules); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRules, err)
	}
	if err := s.checkClient(ctx, clinicID, req.ClientID); err != nil {
		return nil, err
	}
	if err := s.checkNoActivePayer(ctx, clinicID, req.ClientID, model.PayerPAE); err != nil {
		return nil, err
	}

	enc, err := s.box.Encrypt(req.FileNumber)
	if err != nil {
		return nil, fmt.Errorf("encrypt file number: %w", err)
	}

	rules, err := coverage.EncodeRules(req.Rules)
	if err != nil {
		return nil, fmt.Errorf("encode rules: %w", err)
	}

	expiry := req.ExpiryDate
	p := &model.ExternalPayer{
		ClinicID:             clinicID,
		ClientID:             req.ClientID,
		Kind:                 model.PayerPAE,
		FileNumberEncrypted:  enc,
		IsActive:             true,
		ExpiryDate:           &expiry,
		ProviderName:         req.ProviderName,
		EmployerName:         req.EmployerName,
		ReimbursementPercent: req.ReimbursementPercent,
		MaxAmountCents:       req.MaxAmountCents,
		Rules:                datatypes.JSON(rules),
	}
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return nil, fmt.Errorf("create pae payer: %w", err)
	}
	return p, nil
}

// ---------------------------------------------------------------------------
// Read / update / lifecycle
// ---------------------------------------------------------------------------

func (s *payerService) GetByID(ctx context.Context, clinicID, payerID uuid.UUID) (*model.ExternalPayer, error) {
	var p model.ExternalPayer
	err := s.db.WithContext(ctx).
		Where("clinic_id = ? AND id = ?", clinicID, payerID).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPayerNotFound
		}
		return nil, fmt.Errorf("get payer: %w", err)
	}
	return &p, nil
}

func (s *payerService) ListForClient(ctx context.Context, clinicID, clientID uuid.UUID, includeInactive bool) ([]model.ExternalPayer, error) {
	q := s.db.WithContext(ctx).
		Where("clinic_id = ? AND client_id = ?", clinicID, clientID)
	if !includeInactive {
		q = q.Where("is_active = ?", true)
	}

	var payers []model.ExternalPayer
	if err := q.Order("created_at ASC").Find(&payers).Error; err != nil {
		return nil, fmt.Errorf("list payers: %w", err)
	}
	return payers, nil
}

func (s *payerService) Update(ctx context.Context, clinicID, payerID uuid.UUID, req UpdatePayerRequest) (*model.ExternalPayer, error) {
	p, err := s.GetByID(ctx, clinicID, payerID)
	if err != nil {
		return nil, err
	}

	if req.IncidentDate != nil && p.Kind != model.PayerIVAC {
		return nil, ErrNotIVAC
	}
	if (req.ProviderName != nil || req.EmployerName != nil ||
		req.ReimbursementPercent != nil || req.MaxAmountCents != nil) && p.Kind != model.PayerPAE {
		return nil, ErrNotPAE
	}

	if req.FileNumber != nil {
		if *req.FileNumber == "" {
			return nil, ErrMissingFileNumber
		}
		enc, err := s.box.Encrypt(*req.FileNumber)
		if err != nil {
			return nil, fmt.Errorf("encrypt file number: %w", err)
		}
		p.FileNumberEncrypted = enc
	}
	if req.IncidentDate != nil {
		p.IncidentDate = req.IncidentDate
	}
	if req.ExpiryDate != nil {
		if p.Kind == model.PayerPAE && req.ExpiryDate.IsZero() {
			return nil, ErrMissingExpiry
		}
		p.ExpiryDate = req.ExpiryDate
	}
	if req.ProviderName != nil {
		p.ProviderName = *req.ProviderName
	}
	if req.EmployerName != nil {
		p.EmployerName = *req.EmployerName
	}
	if req.ReimbursementPercent != nil {
		if *req.ReimbursementPercent < 0 || *req.ReimbursementPercent > 100 {
			return nil, ErrInvalidPercent
		}
		p.ReimbursementPercent = *req.ReimbursementPercent
	}
	if req.MaxAmountCents != nil {
		if *req.MaxAmountCents < 0 {
			return nil, ErrInvalidAmount
		}
		p.MaxAmountCents = *req.MaxAmountCents
	}

	if err := s.db.WithContext(ctx).Save(p).Error; err != nil {
		return nil, fmt.Errorf("update payer: %w", err)
	}
	return p, nil
}

func (s *payerService) ReplaceRules(ctx context.Context, clinicID, payerID uuid.UUID, rules []coverage.Rule) (*model.ExternalPayer, error) {
	p, err := s.GetByID(ctx, clinicID, payerID)
	if err != nil {
		return nil, err
	}
	if p.Kind != model.PayerPAE {
		return nil, ErrNotPAE
	}
	if err := coverage.ValidateChain(rules); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRules, err)
	}

	encoded, err := coverage.EncodeRules(rules)
	if err != nil {
		return nil, fmt.Errorf("encode rules: %w", err)
	}

	p.Rules = datatypes.JSON(encoded)
	if err := s.db.WithContext(ctx).Model(p).Update("rules", p.Rules).Error; err != nil {
		return nil, fmt.Errorf("replace rules: %w", err)
	}
	return p, nil
}

func (s *payerService) Deactivate(ctx context.Context, clinicID, payerID uuid.UUID) error {
	res := s.db.WithContext(ctx).Model(&model.ExternalPayer{}).
		Where("clinic_id = ? AND id = ? AND is_active = ?", clinicID, payerID, true).
		Update("is_active", false)
	if res.Error != nil {
		return fmt.Errorf("deactivate payer: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// Either missing or already inactive; distinguish for the caller.
		if _, err := s.GetByID(ctx, clinicID, payerID); err != nil {
			return err
		}
		return nil
	}
	return nil
}

func (s *payerService) Reactivate(ctx context.Context, clinicID, payerID uuid.UUID) error {
	p, err := s.GetByID(ctx, clinicID, payerID)
	if err != nil {
		return err
	}
	if p.IsActive {
		return nil
	}
	if err := s.checkNoActivePayer(ctx, clinicID, p.ClientID, p.Kind); err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Model(p).Update("is_active", true).Error; err != nil {
		return fmt.Errorf("reactivate payer: %w", err)
	}
	return nil
}

func (s *payerService) Delete(ctx context.Context, clinicID, payerID uuid.UUID) error {
	res := s.db.WithContext(ctx).
		Where("clinic_id = ?", clinicID).
		Delete(&model.ExternalPayer{}, "id = ?", payerID)
	if res.Error != nil {
		return fmt.Errorf("delete payer: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrPayerNotFound
	}
	return nil
}

// ---------------------------------------------------------------------------
// Evaluation and billing
// ---------------------------------------------------------------------------

func (s *payerService) EvaluateAppointment(ctx context.Context, clinicID, payerID uuid.UUID, index int, serviceName string, feeCents int64) (*Evaluation, error) {
	if index < 1 {
		return nil, ErrInvalidIndex
	}
	if feeCents < 0 {
		return nil, ErrInvalidAmount
	}

	p, err := s.GetByID(ctx, clinicID, payerID)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, ErrPayerInactive
	}

	return s.evaluate(p, index, serviceName, feeCents)
}

// evaluate prices one appointment against a loaded payer row. The rule
// chain decides the split; the PAE budget ceiling then caps the payer
// share at whatever budget remains.
func (s *payerService) evaluate(p *model.ExternalPayer, index int, serviceName string, feeCents int64) (*Evaluation, error) {
	var split coverage.CostSplit

	switch p.Kind {
	case model.PayerIVAC:
		split = coverage.CostSplit{
			Kind:         coverage.SplitFullyCovered,
			PayerPercent: coverage.IVACReimbursementPercent,
		}

	case model.PayerPAE:
		rules, err := coverage.DecodeRules(p.Rules)
		if err != nil {
			return nil, fmt.Errorf("decode rules: %w", err)
		}
		if len(rules) > 0 {
			split = coverage.EvaluateAppointment(rules, index, serviceName)
		} else if p.ReimbursementPercent > 0 {
			// No chain configured: fall back to the payer-level rate.
			split = coverage.CostSplit{
				Kind:          coverage.SplitPercentage,
				PayerPercent:  p.ReimbursementPercent,
				ClientPercent: 100 - p.ReimbursementPercent,
			}
		} else {
			split = coverage.CostSplit{Kind: coverage.SplitClientPays, ClientPercent: 100}
		}

	default:
		return nil, fmt.Errorf("unknown payer kind %q", p.Kind)
	}

	payerCents, clientCents := split.Amounts(feeCents)

	ev := &Evaluation{
		Index:       index,
		Split:       split,
		PayerCents:  payerCents,
		ClientCents: clientCents,
	}

	if p.Kind == model.PayerPAE && p.MaxAmountCents > 0 {
		remaining := p.MaxAmountCents - p.AmountUsedCents
		if remaining < 0 {
			remaining = 0
		}
		if payerCents > remaining {
			ev.PayerCents = remaining
			ev.ClientCents = feeCents - remaining
			ev.BudgetCapped = true
		}
	}

	return ev, nil
}

func (s *payerService) RecordBilledAppointment(ctx context.Context, clinicID, payerID uuid.UUID, serviceName string, serviceDate time.Time, feeCents int64) (*Evaluation, *BudgetStatus, error) {
	if feeCents < 0 {
		return nil, nil, ErrInvalidAmount
	}

	var (
		ev     *Evaluation
		status *BudgetStatus
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p model.ExternalPayer
		err := tx.Where("clinic_id = ? AND id = ?", clinicID, payerID).First(&p).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPayerNotFound
			}
			return fmt.Errorf("get payer: %w", err)
		}
		if !p.IsActive {
			return ErrPayerInactive
		}
		if p.ExpiryDate != nil && serviceDate.After(*p.ExpiryDate) {
			return ErrPayerExpired
		}

		index := p.AppointmentsUsed + 1
		ev, err = s.evaluate(&p, index, serviceName, feeCents)
		if err != nil {
			return err
		}

		err = tx.Model(&p).Updates(map[string]any{
			"appointments_used": gorm.Expr("appointments_used + ?", 1),
			"amount_used_cents": gorm.Expr("amount_used_cents + ?", ev.PayerCents),
		}).Error
		if err != nil {
			return fmt.Errorf("advance usage counters: %w", err)
		}

		p.AppointmentsUsed = index
		p.AmountUsedCents += ev.PayerCents
		status = budgetStatusOf(&p)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return ev, status, nil
}

func (s *payerService) BudgetStatus(ctx context.Context, clinicID, payerID uuid.UUID) (*BudgetStatus, error) {
	p, err := s.GetByID(ctx, clinicID, payerID)
	if err != nil {
		return nil, err
	}
	if p.Kind != model.PayerPAE {
		return nil, ErrNotPAE
	}
	return budgetStatusOf(p), nil
}

func budgetStatusOf(p *model.ExternalPayer) *BudgetStatus {
	st := &BudgetStatus{
		MaxAmountCents:   p.MaxAmountCents,
		AmountUsedCents:  p.AmountUsedCents,
		AppointmentsUsed: p.AppointmentsUsed,
	}
	if p.MaxAmountCents <= 0 {
		return st
	}

	st.RemainingCents = p.MaxAmountCents - p.AmountUsedCents
	if st.RemainingCents < 0 {
		st.RemainingCents = 0
	}
	st.UsedPercent = int(p.AmountUsedCents * 100 / p.MaxAmountCents)
	st.Warning = st.UsedPercent >= BudgetWarningPercent
	return st
}

func (s *payerService) RuleChainSummary(ctx context.Context, clinicID, payerID uuid.UUID) (string, error) {
	p, err := s.GetByID(ctx, clinicID, payerID)
	if err != nil {
		return "", err
	}

	if p.Kind == model.PayerIVAC {
		return "covered in full (IVAC)", nil
	}

	rules, err := coverage.DecodeRules(p.Rules)
	if err != nil {
		return "", fmt.Errorf("decode rules: %w", err)
	}
	return coverage.FormatRuleChainSummary(rules), nil
}

// ---------------------------------------------------------------------------
// Claims
// ---------------------------------------------------------------------------

func (s *payerService) SubmitClaim(ctx context.Context, clinicID, payerID uuid.UUID, req SubmitClaimRequest) (string, error) {
	if s.portal == nil {
		return "", ErrClaimsUnavailable
	}
	if req.AmountCents <= 0 {
		return "", ErrInvalidAmount
	}

	p, err := s.GetByID(ctx, clinicID, payerID)
	if err != nil {
		return "", err
	}
	if !p.IsActive {
		return "", ErrPayerInactive
	}

	fileNumber, err := s.box.Decrypt(p.FileNumberEncrypted)
	if err != nil {
		return "", fmt.Errorf("decrypt file number: %w", err)
	}

	reference, err := s.portal.Submit(ctx, claims.Claim{
		Program:     string(p.Kind),
		FileNumber:  fileNumber,
		AmountCents: req.AmountCents,
		ServiceDate: req.ServiceDate.Format("2006-01-02"),
		Description: req.Description,
	})
	if err != nil {
		return "", fmt.Errorf("submit claim: %w", err)
	}
	return reference, nil
}

func (s *payerService) RevealFileNumber(ctx context.Context, clinicID, payerID uuid.UUID) (string, error) {
	p, err := s.GetByID(ctx, clinicID, payerID)
	if err != nil {
		return "", err
	}
	plain, err := s.box.Decrypt(p.FileNumberEncrypted)
	if err != nil {
		return "", fmt.Errorf("decrypt file number: %w", err)
	}
	return plain, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (s *payerService) checkClient(ctx context.Context, clinicID, clientID uuid.UUID) error {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.Client{}).
		Where("clinic_id = ? AND id = ?", clinicID, clientID).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("check client: %w", err)
	}
	if count == 0 {
		return ErrClientNotFound
	}
	return nil
}

func (s *payerService) checkNoActivePayer(ctx context.Context, clinicID, clientID uuid.UUID, kind model.PayerKind) error {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.ExternalPayer{}).
		Where("clinic_id = ? AND client_id = ? AND kind = ? AND is_active = ?", clinicID, clientID, kind, true).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("check active payer: %w", err)
	}
	if count > 0 {
		return ErrActivePayerExists
	}
	return nil
}
