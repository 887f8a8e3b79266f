package period

import "time"

type PeriodResponse struct {
	ID        string     `json:"id"`
	CompanyID string     `json:"company_id"`
	Name      string     `json:"name"`
	Status    string     `json:"status"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
	ClosedBy  *string    `json:"closed_by,omitempty"`
}

type AuthorizationResponse struct {
	ID            string     `json:"id"`
	PeriodID      string     `json:"period_id"`
	AuthorizedBy  string     `json:"authorized_by"`
	Justification string     `json:"justification"`
	AuthorizedAt  time.Time  `json:"authorized_at"`
	Active        bool       `json:"active"`
	RevokedAt     *time.Time `json:"revoked_at,omitempty"`
	RevokedBy     *string    `json:"revoked_by,omitempty"`
	RevokeReason  *string    `json:"revoke_reason,omitempty"`
}

func mapPeriodResponse(p *Period) PeriodResponse {
	return PeriodResponse{
		ID:        p.ID,
		CompanyID: p.CompanyID,
		Name:      p.Name,
		Status:    p.Status,
		ClosedAt:  p.ClosedAt,
		ClosedBy:  p.ClosedBy,
	}
}

func mapAuthorizationResponse(a *StampingAuthorization) AuthorizationResponse {
	return AuthorizationResponse{
		ID:            a.ID,
		PeriodID:      a.PeriodID,
		AuthorizedBy:  a.AuthorizedBy,
		Justification: a.Justification,
		AuthorizedAt:  a.AuthorizedAt,
		Active:        a.Active(),
		RevokedAt:     a.RevokedAt,
		RevokedBy:     a.RevokedBy,
		RevokeReason:  a.RevokeReason,
	}
}
