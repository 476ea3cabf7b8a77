package models

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

type User struct {
	ID            int       `json:"id" example:"1"`
	EmployeeId    string    `json:"employee_id" example:"MEP001"`
	Email         string    `json:"email" example:"user@example.com"`
	Password      string    `json:"password" example:""`
	FirstName     string    `json:"first_name" example:"Asha"`
	LastName      string    `json:"last_name" example:"Kulkarni"`
	CreatedAt     time.Time `json:"created_at" example:"2024-01-15T10:30:00Z"`
	UpdatedAt     time.Time `json:"updated_at" example:"2024-01-15T10:30:00Z"`
	FirstAccess   time.Time `json:"first_access,omitempty" example:"2024-01-15T10:30:00Z"`
	LastAccess    time.Time `json:"last_access,omitempty" example:"2024-01-15T10:30:00Z"`
	ProfilePic    string    `json:"profile_picture" example:""`
	IsAdmin       bool      `json:"is_admin" example:"false"`
	Discipline    string    `json:"discipline" example:"Electrical"`
	ApprovalLevel string    `json:"approval_level" example:"L1"`
	City          string    `json:"city" example:"Pune"`
	State         string    `json:"state" example:"Maharashtra"`
	Country       string    `json:"country" example:"India"`
	PhoneNo       string    `json:"phone_no" example:"9876543210"`
	RoleID        int       `json:"role_id" example:"1"`
	RoleName      string    `json:"role_name" example:"Design Engineer"`
	Suspended     bool      `json:"suspended" example:"false"`
	FCMToken      string    `json:"fcm_token,omitempty" example:""`
}

type Session struct {
	UserID                int       `json:"user_id"`
	SessionID             string    `json:"session_id"`
	HostName              string    `json:"host_name"`
	IPAddress             string    `json:"ip_address"`
	Timestamp             time.Time `json:"timestp"`
	ExpiresAt             time.Time `json:"expires_at"`
	RefreshToken          string    `json:"refresh_token,omitempty"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at,omitempty"`
}

// ActivityLog is one row of the audit trail. EventContext names the portal
// area ("RFI", "DDS", "Load Calculation"), EventName the action.
type ActivityLog struct {
	ID                int       `json:"id"`
	CreatedAt         time.Time `json:"created_at"`
	UserName          string    `json:"user_name"`
	HostName          string    `json:"host_name"`
	EventContext      string    `json:"event_context"`
	IPAddress         string    `json:"ip_address"`
	Description       string    `json:"description"`
	EventName         string    `json:"event_name"`
	AffectedUserName  string    `json:"affected_user_name,omitempty"`
	AffectedUserEmail string    `json:"affected_user_email,omitempty"`
	ProjectID         int       `json:"project_id"`
}

func GetSessionBySessionID(db *sql.DB, sessionID string) (*Session, error) {
	query := `SELECT session_id, user_id, host_name, timestp FROM session WHERE session_id = $1`

	var session Session

	err := db.QueryRow(query, sessionID).Scan(&session.SessionID, &session.UserID, &session.HostName, &session.Timestamp)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.New("session not found")
		}
		return nil, err
	}

	return &session, nil
}

type DateOnly struct {
	time.Time
}

const dateFormat = "2006-01-02"

func (d *DateOnly) UnmarshalJSON(data []byte) error {
	parsedTime, err := time.Parse(`"`+dateFormat+`"`, string(data))
	if err != nil {
		return err
	}
	d.Time = parsedTime
	return nil
}

func (d DateOnly) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Time.Format(dateFormat))
}

func (d DateOnly) ToTime() time.Time {
	return d.Time
}

// Scan implements the Scanner interface for DateOnly type
func (d *DateOnly) Scan(value interface{}) error {
	if value == nil {
		d.Time = time.Time{}
		return nil
	}
	switch v := value.(type) {
	case time.Time:
		d.Time = v
		d.Time = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location())
		return nil
	default:
		return fmt.Errorf("cannot scan type %T into DateOnly", v)
	}
}

// Value implements driver.Valuer for database/sql
func (d DateOnly) Value() (driver.Value, error) {
	return d.Time, nil
}

type Project struct {
	ProjectId             int       `json:"project_id" example:"1"`
	Name                  string    `json:"name" example:"Riverside Heights"`
	Code                  string    `json:"code" example:"RH2024"`
	Priority              string    `json:"priority" example:"high"`
	ProjectStatus         string    `json:"project_status" example:"Ongoing"`
	AreaType              string    `json:"area_type" example:"URBAN"`
	StartDate             DateOnly  `json:"start_date" example:"2024-01-01"`
	EndDate               DateOnly  `json:"end_date" example:"2024-12-31"`
	Description           string    `json:"description" example:"Residential society, 4 towers + clubhouse"`
	ClientName            string    `json:"client_name" example:"Skyline Developers"`
	CreatedAt             time.Time `json:"created_at" example:"2024-01-15T10:30:00Z"`
	UpdatedAt             time.Time `json:"updated_at" example:"2024-01-15T10:30:00Z"`
	CreatedBy             string    `json:"created_by" example:"admin"`
	Suspend               bool      `json:"suspend" example:"false"`
	SubscriptionStartDate DateOnly  `json:"subscription_start_date" example:"2024-01-01"`
	SubscriptionEndDate   DateOnly  `json:"subscription_end_date" example:"2024-12-31"`
}

type Society struct {
	SocietyID   int    `json:"society_id" example:"1"`
	ProjectID   int    `json:"project_id" example:"1"`
	Name        string `json:"name" example:"Phase 1 Society"`
	Description string `json:"description" example:"Towers A-D with shared infrastructure"`
}

// RFI represents a Request For Information raised against a project drawing
// or data entry, routed to the owning discipline.
type RFI struct {
	RFIID        int        `json:"rfi_id" example:"1"`
	RFINumber    string     `json:"rfi_number" example:"RFI/RH2024/0001"`
	ProjectID    int        `json:"project_id" example:"1"`
	Discipline   string     `json:"discipline" example:"Electrical"`
	Subject      string     `json:"subject" example:"Clarify transformer room clearance"`
	Question     string     `json:"question" example:"Drawing E-102 shows 1.2m clearance; NBC requires 1.5m?"`
	Response     string     `json:"response,omitempty" example:""`
	Status       string     `json:"status" example:"Open"`
	RaisedBy     int        `json:"raised_by" example:"3"`
	RaisedByName string     `json:"raised_by_name,omitempty" example:"Asha Kulkarni"`
	AssignedTo   int        `json:"assigned_to" example:"5"`
	DueDate      DateOnly   `json:"due_date" example:"2024-02-01"`
	CreatedAt    time.Time  `json:"created_at" example:"2024-01-15T10:30:00Z"`
	RespondedAt  *time.Time `json:"responded_at,omitempty"`
	ClosedAt     *time.Time `json:"closed_at,omitempty"`
}

// DDS represents one row of the Drawing Delivery Schedule. Approval moves
// L0 -> L1 -> L2; ApprovalLevel records the highest level granted so far.
type DDS struct {
	DDSID         int       `json:"dds_id" example:"1"`
	ProjectID     int       `json:"project_id" example:"1"`
	DrawingNumber string    `json:"drawing_number" example:"E-102"`
	Title         string    `json:"title" example:"Tower A single line diagram"`
	Discipline    string    `json:"discipline" example:"Electrical"`
	PlannedDate   DateOnly  `json:"planned_date" example:"2024-02-15"`
	ActualDate    *DateOnly `json:"actual_date,omitempty"`
	Revision      string    `json:"revision" example:"RV-01"`
	ApprovalLevel string    `json:"approval_level" example:"L0"`
	Status        string    `json:"status" example:"Pending"`
	Remarks       string    `json:"remarks,omitempty" example:""`
	CreatedAt     time.Time `json:"created_at" example:"2024-01-15T10:30:00Z"`
	UpdatedAt     time.Time `json:"updated_at" example:"2024-01-15T10:30:00Z"`
}

// Building is one tower/block in a project. A twin building carries no
// floors of its own; its layout is inherited from TwinOfBuildingName.
type Building struct {
	BuildingID          string  `json:"building_id" example:"b-1"`
	ProjectID           int     `json:"project_id" example:"1"`
	Name                string  `json:"name" example:"Tower A"`
	ApplicationType     string  `json:"application_type" example:"Residential"`
	TwinOfBuildingName  *string `json:"twin_of_building_name,omitempty"`
	SocietyID           *int    `json:"society_id,omitempty"`
	Floors              []Floor `json:"floors"`
	GFEntranceLobbyArea float64 `json:"gf_entrance_lobby_area" example:"120"`
	PassengerLifts      int     `json:"passenger_lifts" example:"2"`
	PassengerFireLifts  int     `json:"passenger_fire_lifts" example:"1"`
	FiremenLifts        int     `json:"firemen_lifts" example:"1"`
	StaircaseCount      int     `json:"staircase_count" example:"2"`
	ParkingCount        int     `json:"parking_count" example:"80"`
	ParkingArea         float64 `json:"parking_area" example:"2400"`
	MechVentilation     bool    `json:"mech_ventilation" example:"true"`
	BoosterPumpKW       float64 `json:"booster_pump_kw" example:"7.5"`
	SewagePumpKW        float64 `json:"sewage_pump_kw" example:"3.7"`
	WetRiserPumpKW      float64 `json:"wet_riser_pump_kw" example:"15"`
	PumpWorkingSets     int     `json:"pump_working_sets" example:"1"`
	PumpStandbySets     int     `json:"pump_standby_sets" example:"1"`
	VillaUnits          int     `json:"villa_units" example:"0"`
	VillaAreaSqm        float64 `json:"villa_area_sqm" example:"0"`
}

// Floor belongs to a building. A twin floor inherits the flats of the floor
// named by TwinOfFloorName within the same building.
type Floor struct {
	FloorID         string  `json:"floor_id" example:"f-1"`
	Sequence        int     `json:"sequence" example:"1"`
	Name            string  `json:"name" example:"First Floor"`
	HeightM         float64 `json:"height_m" example:"3.0"`
	TwinOfFloorName *string `json:"twin_of_floor_name,omitempty"`
	LobbyArea       float64 `json:"lobby_area" example:"45"`
	Flats           []Flat  `json:"flats"`
}

// Flat is N identical units of one type on one floor.
type Flat struct {
	FlatID   string  `json:"flat_id" example:"u-1"`
	FlatType string  `json:"flat_type" example:"2BHK"`
	AreaSqm  float64 `json:"area_sqm" example:"85"`
	Count    int     `json:"count" example:"4"`
}

// EVChargerGroup is a count of chargers of one type in the society common area.
type EVChargerGroup struct {
	ChargerType string `json:"charger_type" example:"standard"`
	Count       int    `json:"count" example:"10"`
}

// SocietyCommon holds the society-level (shared infrastructure) inputs that
// do not belong to any single building.
type SocietyCommon struct {
	HydrantPumpKW   float64          `json:"hydrant_pump_kw" example:"45"`
	SprinklerPumpKW float64          `json:"sprinkler_pump_kw" example:"30"`
	JockeyPumpKW    float64          `json:"jockey_pump_kw" example:"7.5"`
	ClubhouseArea   float64          `json:"clubhouse_area" example:"600"`
	StreetLightKW   float64          `json:"street_light_kw" example:"12"`
	EVChargers      []EVChargerGroup `json:"ev_chargers"`
	STPKW           float64          `json:"stp_kw" example:"22"`
	SecurityKW      float64          `json:"security_kw" example:"5"`
	SmallPowerKW    float64          `json:"small_power_kw" example:"10"`
}
