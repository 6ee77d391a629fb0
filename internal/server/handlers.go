package server

import (
	"net/http"

	"github.com/mizutamari/warikan/internal/auth"
	"github.com/mizutamari/warikan/internal/models"
)

type tokenRequest struct {
	HouseholdID string `json:"household_id"`
	Password    string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// handleIssueToken exchanges the deployment admin password for a household
// admin token.
func (s *Server) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := auth.VerifyPassword(s.adminPasswordHash, req.Password); err != nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: auth.ErrInvalidCredentials.Error()})
		return
	}
	token, err := s.jwtManager.Generate(req.HouseholdID, true)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: token})
}

type createHouseholdRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleCreateHousehold(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	var req createHouseholdRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "name is required"})
		return
	}
	household := &models.Household{Name: req.Name}
	if err := s.store.CreateHousehold(r.Context(), household); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, household)
}

type addMemberRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	var req addMemberRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "name is required"})
		return
	}
	member := &models.Member{HouseholdID: r.PathValue("id"), Name: req.Name}
	if err := s.store.AddMember(r.Context(), member); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, member)
}

type recordExpenseRequest struct {
	PayerMemberID    string `json:"payer_member_id"`
	AmountMinorUnits int64  `json:"amount_minor_units"`
	Period           string `json:"period"`
	ShouldApportion  bool   `json:"should_apportion"`
	Description      string `json:"description"`
}

func (s *Server) handleRecordExpense(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	var req recordExpenseRequest
	if !decodeBody(w, r, &req) {
		return
	}
	period, err := models.ParsePeriod(req.Period)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if req.AmountMinorUnits < 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "amount must be non-negative"})
		return
	}
	record := &models.ExpenseRecord{
		HouseholdID:      r.PathValue("id"),
		PayerMemberID:    req.PayerMemberID,
		AmountMinorUnits: req.AmountMinorUnits,
		Period:           period,
		ShouldApportion:  req.ShouldApportion,
		Description:      req.Description,
	}
	if err := s.store.RecordExpense(r.Context(), record); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

type declareIncomeRequest struct {
	MemberID        string `json:"member_id"`
	Period          string `json:"period"`
	GrossAmount     int64  `json:"gross_amount"`
	DeductionAmount int64  `json:"deduction_amount"`
}

func (s *Server) handleDeclareIncome(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	var req declareIncomeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	period, err := models.ParsePeriod(req.Period)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	declaration := &models.IncomeDeclaration{
		MemberID:        req.MemberID,
		Period:          period,
		GrossAmount:     req.GrossAmount,
		DeductionAmount: req.DeductionAmount,
	}
	if err := s.store.DeclareIncome(r.Context(), declaration); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, declaration)
}

type setPolicyRequest struct {
	WeightingMode     string `json:"weighting_mode"`
	MissingIncomeMode string `json:"missing_income_mode"`
	RoundingMode      string `json:"rounding_mode"`
}

func (s *Server) handleSetPolicy(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	var req setPolicyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	policy := models.Policy{
		HouseholdID:       r.PathValue("id"),
		WeightingMode:     req.WeightingMode,
		MissingIncomeMode: req.MissingIncomeMode,
		RoundingMode:      req.RoundingMode,
	}
	if policy.WeightingMode != models.WeightingIncome && policy.WeightingMode != models.WeightingEqual {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unknown weighting_mode"})
		return
	}
	if policy.MissingIncomeMode == "" {
		policy.MissingIncomeMode = models.MissingIncomeZero
	}
	if policy.RoundingMode == "" {
		policy.RoundingMode = models.RoundingLargestRemainder
	}
	if policy.RoundingMode != models.RoundingLargestRemainder {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unknown rounding_mode"})
		return
	}
	if err := s.store.SetPolicy(r.Context(), policy); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, policy)
}

type runSettlementRequest struct {
	HouseholdID string `json:"household_id"`
	Period      string `json:"period"`
}

func (s *Server) handleRunSettlement(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	var req runSettlementRequest
	if !decodeBody(w, r, &req) {
		return
	}
	period, err := models.ParsePeriod(req.Period)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	settlement, err := s.settlements.Run(r.Context(), req.HouseholdID, period)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSettlementResponse(settlement))
}

func (s *Server) handleFinalizeSettlement(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	settlement, err := s.settlements.Finalize(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSettlementResponse(settlement))
}

func (s *Server) handleListSettlements(w http.ResponseWriter, r *http.Request) {
	householdID := r.URL.Query().Get("household_id")
	if householdID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "household_id is required"})
		return
	}
	settlements, err := s.settlements.List(r.Context(), householdID)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := make([]settlementResponse, len(settlements))
	for i, settlement := range settlements {
		resp[i] = toSettlementResponse(settlement)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetSettlement(w http.ResponseWriter, r *http.Request) {
	settlement, err := s.settlements.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSettlementResponse(settlement))
}

type transferResponse struct {
	FromMemberID     string `json:"from_member_id"`
	ToMemberID       string `json:"to_member_id"`
	AmountMinorUnits int64  `json:"amount_minor_units"`
	Description      string `json:"description,omitempty"`
}

type shareResponse struct {
	MemberID  string `json:"member_id"`
	Weight    string `json:"weight"`
	FairShare int64  `json:"fair_share"`
	Paid      int64  `json:"paid"`
	Delta     int64  `json:"delta"`
}

type settlementResponse struct {
	ID            string             `json:"id"`
	HouseholdID   string             `json:"household_id"`
	Period        string             `json:"period"`
	Status        string             `json:"status"`
	Transfers     []transferResponse `json:"transfers"`
	Shares        []shareResponse    `json:"shares"`
	TotalExpenses int64              `json:"total_expenses"`
	CreatedAt     int64              `json:"created_at"`
	FinalizedAt   int64              `json:"finalized_at,omitempty"`
}

func toSettlementResponse(settlement *models.Settlement) settlementResponse {
	resp := settlementResponse{
		ID:            settlement.ID,
		HouseholdID:   settlement.HouseholdID,
		Period:        settlement.Period.String(),
		Status:        settlement.Status,
		Transfers:     make([]transferResponse, len(settlement.Transfers)),
		Shares:        make([]shareResponse, len(settlement.Shares)),
		TotalExpenses: settlement.TotalExpenses,
		CreatedAt:     settlement.CreatedAt,
		FinalizedAt:   settlement.FinalizedAt,
	}
	for i, transfer := range settlement.Transfers {
		resp.Transfers[i] = transferResponse{
			FromMemberID:     transfer.FromMemberID,
			ToMemberID:       transfer.ToMemberID,
			AmountMinorUnits: transfer.AmountMinorUnits,
			Description:      transfer.Description,
		}
	}
	for i, share := range settlement.Shares {
		resp.Shares[i] = shareResponse{
			MemberID:  share.MemberID,
			Weight:    share.Weight,
			FairShare: share.FairShare,
			Paid:      share.Paid,
			Delta:     share.Delta,
		}
	}
	return resp
}
