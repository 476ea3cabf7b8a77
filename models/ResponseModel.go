package models

// ErrorResponse is the generic error body returned by handlers.
type ErrorResponse struct {
	Error   string `json:"error" example:"Invalid input"`
	Details string `json:"details,omitempty" example:""`
}

// LoginRequest is used in @Param for login body
type LoginRequest struct {
	Email    string `json:"email" binding:"required" example:"user@example.com"`
	Password string `json:"password" binding:"required" example:"password"`
	IP       string `json:"ip" example:"192.168.1.1"`
}

// LoginUser is the user object inside LoginResponse
type LoginUser struct {
	ID            int    `json:"id" example:"1"`
	Email         string `json:"email" example:"user@example.com"`
	Discipline    string `json:"discipline" example:"Electrical"`
	ApprovalLevel string `json:"approval_level" example:"L1"`
}

// LoginResponse is used in @Success for login
type LoginResponse struct {
	Message     string    `json:"message" example:"User successfully logged in"`
	AccessToken string    `json:"access_token" example:"eyJhbGc..."`
	Role        string    `json:"role" example:"admin"`
	User        LoginUser `json:"user"`
}

// SuccessResponse is used in @Success for generic success
type SuccessResponse struct {
	Message string      `json:"message" example:"Success"`
	Data    interface{} `json:"data,omitempty"`
}

// RefreshTokenRequest is the body for POST /api/refresh-token
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required" example:"eyJhbGc..."`
}

// TwinAssignRequest is the body for POST /api/buildings/:building_id/twin.
// ParentName must be an existing non-twin building in the same project;
// passing an empty parent clears the twin link.
type TwinAssignRequest struct {
	ParentName string `json:"parent_name" example:"Tower A"`
}

// SocietyAssignRequest is the body for POST /api/buildings/:building_id/society.
type SocietyAssignRequest struct {
	SocietyID int `json:"society_id" binding:"required" example:"1"`
}

// RFIRespondRequest is the body for POST /api/rfi_respond/:rfi_id
type RFIRespondRequest struct {
	Response string `json:"response" binding:"required" example:"Clearance increased to 1.5m, see E-102 Rev B"`
	Close    bool   `json:"close" example:"false"`
}

// DDSApproveRequest is the body for POST /api/dds_approve/:dds_id
type DDSApproveRequest struct {
	ApprovalLevel string `json:"approval_level" binding:"required" example:"L1"`
	Remarks       string `json:"remarks" example:""`
}
