package model

type RegisterRequest struct {
	Username        string `json:"Username" validate:"required,min=3,max=30,username"`
	Email           string `json:"Email" validate:"required,email,max=254"`
	Password        string `json:"Password" validate:"required,password_policy"`
	ConfirmPassword string `json:"ConfirmPassword"`
}

type LoginRequest struct {
	Email    string `json:"Email"`
	Password string `json:"Password"`
}

type PasswordResetRequest struct {
	Email string `json:"Email" validate:"required,email,max=254"`
}

type ConfirmResetRequest struct {
	Token           string `json:"Token" validate:"required"`
	NewPassword     string `json:"NewPassword" validate:"required,password_policy"`
	ConfirmPassword string `json:"ConfirmPassword"`
}
