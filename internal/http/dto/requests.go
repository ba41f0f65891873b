package dto

import "time"

// Auth

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=128"`
}

type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type PasswordResetConfirmRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=128"`
}

// Companies

type CompanyRequest struct {
	Name         string  `json:"name" validate:"required,max=255"`
	ContactEmail *string `json:"contact_email,omitempty" validate:"omitempty,email"`
	ContactPhone *string `json:"contact_phone,omitempty" validate:"omitempty,max=50"`
	Address      *string `json:"address,omitempty" validate:"omitempty,max=1000"`
	IsActive     *bool   `json:"is_active,omitempty"`
}

type UpdateCompanyRequest struct {
	Name         string  `json:"name" validate:"omitempty,max=255"`
	ContactEmail *string `json:"contact_email,omitempty" validate:"omitempty,email"`
	ContactPhone *string `json:"contact_phone,omitempty" validate:"omitempty,max=50"`
	Address      *string `json:"address,omitempty" validate:"omitempty,max=1000"`
	IsActive     *bool   `json:"is_active,omitempty"`
}

// Users

type CreateUserRequest struct {
	Email     string  `json:"email" validate:"required,email"`
	Password  string  `json:"password" validate:"required,min=8,max=128"`
	FirstName string  `json:"first_name" validate:"required,max=100"`
	LastName  string  `json:"last_name" validate:"max=100"`
	Phone     *string `json:"phone,omitempty" validate:"omitempty,max=50"`
	Role      string  `json:"role" validate:"required,oneof=company_employee client contractor"`
	CompanyID *string `json:"company_id,omitempty" validate:"omitempty,uuid"`
}

type UpdateUserRequest struct {
	Email        *string `json:"email,omitempty" validate:"omitempty,email"`
	FirstName    *string `json:"first_name,omitempty" validate:"omitempty,max=100"`
	LastName     *string `json:"last_name,omitempty" validate:"omitempty,max=100"`
	Phone        *string `json:"phone,omitempty" validate:"omitempty,max=50"`
	Role         *string `json:"role,omitempty" validate:"omitempty,oneof=company_employee client contractor"`
	CompanyID    *string `json:"company_id,omitempty" validate:"omitempty,uuid"`
	ClearCompany bool    `json:"clear_company,omitempty"`
	IsActive     *bool   `json:"is_active,omitempty"`
}

// Campaigns

type CreateCampaignRequest struct {
	Name        string     `json:"name" validate:"required,max=255"`
	Description *string    `json:"description,omitempty" validate:"omitempty,max=5000"`
	CompanyID   string     `json:"company_id" validate:"required,uuid"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
}

type UpdateCampaignRequest struct {
	Name        string     `json:"name" validate:"omitempty,max=255"`
	Description *string    `json:"description,omitempty" validate:"omitempty,max=5000"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
}

type ChangeStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=new in_progress completed cancelled"`
}

type AssignContractorRequest struct {
	ContractorID string `json:"contractor_id" validate:"required,uuid"`
}

// Images

type RejectImageRequest struct {
	Reason string `json:"reason" validate:"required,max=2000"`
}
