package httpapi

import (
	"github.com/dmitrijs2005/fundkeeper/internal/server/models"
	"github.com/dmitrijs2005/fundkeeper/internal/server/services"
	"github.com/shopspring/decimal"
)

type registerRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,max=1024"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type projectRequest struct {
	Title       string          `json:"title" validate:"required,max=255"`
	Description string          `json:"description" validate:"max=10000"`
	GoalAmount  decimal.Decimal `json:"goalAmount"`
	ImageURL    string          `json:"imageUrl" validate:"omitempty,max=2048"`
}

func (p projectRequest) input() services.ProjectInput {
	return services.ProjectInput{
		Title:       p.Title,
		Description: p.Description,
		GoalAmount:  p.GoalAmount,
		ImageURL:    p.ImageURL,
	}
}

type adminProjectRequest struct {
	projectRequest
	Status models.ProjectStatus `json:"status" validate:"required,oneof=draft active completed rejected"`
}

type statusRequest struct {
	Status models.ProjectStatus `json:"status" validate:"required,oneof=draft active completed rejected"`
}

type contributeRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type userUpdateRequest struct {
	Name  string      `json:"name" validate:"required,max=255"`
	Email string      `json:"email" validate:"required,email,max=255"`
	Role  models.Role `json:"role" validate:"required,oneof=user admin"`
}

type settingRequest struct {
	Key   string  `json:"key" validate:"required,max=255"`
	Value *string `json:"value" validate:"required"`
}

type sessionResponse struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

type receiptResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	*models.ContributionReceipt
}
