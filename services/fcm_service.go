package services

import (
	"bytes"
	"context"
	"crypto/rsa"
	"crypto/x509"
	"database/sql"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"backend/models"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/jwt"
)

// FCMService handles Firebase Cloud Messaging operations using HTTP v1 API
type FCMService struct {
	projectID   string
	credentials *jwt.Config
	db          *sql.DB
	httpClient  *http.Client
	tokenSource oauth2.TokenSource
}

// ServiceAccountCredentials represents the structure of Firebase service account JSON
type ServiceAccountCredentials struct {
	Type                string `json:"type"`
	ProjectID           string `json:"project_id"`
	PrivateKeyID        string `json:"private_key_id"`
	PrivateKey          string `json:"private_key"`
	ClientEmail         string `json:"client_email"`
	ClientID            string `json:"client_id"`
	AuthURI             string `json:"auth_uri"`
	TokenURI            string `json:"token_uri"`
	AuthProviderCertURL string `json:"auth_provider_x509_cert_url"`
	ClientCertURL       string `json:"client_x509_cert_url"`
}

// NewFCMService initializes and returns a new FCM service using HTTP v1 API.
// credentialsPath: Path to Firebase service account JSON file.
func NewFCMService(credentialsPath string, db *sql.DB) (*FCMService, error) {
	if credentialsPath == "" {
		return nil, fmt.Errorf("credentials path is required")
	}

	data, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("error reading credentials file: %v", err)
	}

	var creds ServiceAccountCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("error parsing credentials: %v", err)
	}

	// Parse private key to validate it before handing it to jwt.Config.
	_, err = parsePrivateKey(creds.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("error parsing private key: %v", err)
	}

	privateKeyStr := strings.ReplaceAll(creds.PrivateKey, "\\n", "\n")

	config := &jwt.Config{
		Email:      creds.ClientEmail,
		PrivateKey: []byte(privateKeyStr),
		Scopes:     []string{"https://www.googleapis.com/auth/firebase.messaging"},
		TokenURL:   creds.TokenURI,
	}

	return &FCMService{
		projectID:   creds.ProjectID,
		credentials: config,
		db:          db,
		httpClient:  &http.Client{},
		tokenSource: config.TokenSource(context.Background()),
	}, nil
}

// parsePrivateKey parses a PEM-encoded private key
func parsePrivateKey(keyData string) (*rsa.PrivateKey, error) {
	keyData = strings.ReplaceAll(keyData, "\\n", "\n")
	keyData = strings.TrimSpace(keyData)

	block, _ := pem.Decode([]byte(keyData))
	if block == nil {
		return nil, fmt.Errorf("failed to parse PEM block")
	}

	privateKey, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		// Try PKCS1 format
		rsaKey, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %v", err)
		}
		return rsaKey, nil
	}

	rsaKey, ok := privateKey.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("not an RSA private key")
	}

	return rsaKey, nil
}

// SendNotification sends a push notification to a single FCM token using HTTP v1 API
func (f *FCMService) SendNotification(ctx context.Context, token, title, body string, data map[string]string) error {
	if token == "" {
		return fmt.Errorf("FCM token cannot be empty")
	}

	oauthToken, err := f.tokenSource.Token()
	if err != nil {
		return fmt.Errorf("error getting OAuth token: %v", err)
	}

	if data == nil {
		data = map[string]string{}
	}

	message := map[string]interface{}{
		"message": map[string]interface{}{
			"token": token,
			"notification": map[string]string{
				"title": title,
				"body":  body,
			},
			"data": data,
			"android": map[string]interface{}{
				"priority": "high",
				"notification": map[string]interface{}{
					"sound":      "default",
					"channel_id": "default",
				},
			},
			"apns": map[string]interface{}{
				"headers": map[string]string{
					"apns-priority": "10",
				},
				"payload": map[string]interface{}{
					"aps": map[string]interface{}{
						"alert": map[string]string{
							"title": title,
							"body":  body,
						},
						"sound": "default",
					},
				},
			},
			"webpush": map[string]interface{}{
				"notification": map[string]interface{}{
					"title": title,
					"body":  body,
				},
				"fcm_options": map[string]interface{}{
					"link": data["action"],
				},
			},
		},
	}

	endpoint := fmt.Sprintf("https://fcm.googleapis.com/v1/projects/%s/messages:send", f.projectID)
	return f.sendHTTPv1Request(ctx, endpoint, oauthToken.AccessToken, message)
}

// SendMulticastNotification sends push notifications to multiple FCM tokens
func (f *FCMService) SendMulticastNotification(ctx context.Context, tokens []string, title, body string, data map[string]string) error {
	validTokens := []string{}
	for _, token := range tokens {
		if strings.TrimSpace(token) != "" {
			validTokens = append(validTokens, token)
		}
	}

	if len(validTokens) == 0 {
		return nil
	}

	failureCount := 0
	for _, token := range validTokens {
		err := f.SendNotification(ctx, token, title, body, data)
		if err != nil {
			failureCount++
			log.Printf("[fcm] failed to send to token: %v", err)
		}
	}

	if failureCount > 0 {
		log.Printf("[fcm] failed to send %d notifications out of %d", failureCount, len(validTokens))
	}

	return nil
}

// SendNotificationToUser sends a push notification to a user by their user ID
func (f *FCMService) SendNotificationToUser(ctx context.Context, userID int, title, body string, data map[string]string) error {
	var fcmToken string
	err := f.db.QueryRow(`SELECT fcm_token FROM users WHERE id = $1 AND fcm_token IS NOT NULL AND fcm_token != ''`, userID).Scan(&fcmToken)
	if err != nil {
		if err == sql.ErrNoRows {
			// Not an error, user just doesn't have a token
			return nil
		}
		return fmt.Errorf("error fetching FCM token for user %d: %v", userID, err)
	}

	if fcmToken == "" {
		return nil
	}

	return f.SendNotification(ctx, fcmToken, title, body, data)
}

// SendNotificationToUsers sends push notifications to multiple users by their user IDs
func (f *FCMService) SendNotificationToUsers(ctx context.Context, userIDs []int, title, body string, data map[string]string) error {
	if len(userIDs) == 0 {
		return nil
	}

	placeholders := make([]string, len(userIDs))
	args := make([]interface{}, len(userIDs))
	for i, id := range userIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	query := fmt.Sprintf(`SELECT fcm_token FROM users WHERE id IN (%s) AND fcm_token IS NOT NULL AND fcm_token != ''`, strings.Join(placeholders, ","))
	rows, err := f.db.Query(query, args...)
	if err != nil {
		return fmt.Errorf("error fetching FCM tokens: %v", err)
	}
	defer rows.Close()

	tokens := []string{}
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			log.Printf("[fcm] error scanning FCM token: %v", err)
			continue
		}
		if token != "" {
			tokens = append(tokens, token)
		}
	}

	if len(tokens) == 0 {
		return nil
	}

	return f.SendMulticastNotification(ctx, tokens, title, body, data)
}

// SaveFCMToken saves or updates the FCM token for a user
func (f *FCMService) SaveFCMToken(userID int, token string) error {
	_, err := f.db.Exec(`UPDATE users SET fcm_token = $1 WHERE id = $2`, token, userID)
	if err != nil {
		return fmt.Errorf("error saving FCM token: %v", err)
	}
	return nil
}

// RemoveFCMToken removes the FCM token for a user
func (f *FCMService) RemoveFCMToken(userID int) error {
	_, err := f.db.Exec(`UPDATE users SET fcm_token = NULL WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("error removing FCM token: %v", err)
	}
	return nil
}

// sendHTTPv1Request sends an HTTP POST request to FCM HTTP v1 API
func (f *FCMService) sendHTTPv1Request(ctx context.Context, endpoint, accessToken string, payload map[string]interface{}) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("error marshaling payload: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("error creating request: %v", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", accessToken))

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error sending request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errorResp map[string]interface{}
		if err := json.NewDecoder(resp.Body).Decode(&errorResp); err == nil {
			return fmt.Errorf("FCM API error (status %d): %v", resp.StatusCode, errorResp)
		}
		return fmt.Errorf("FCM API error: status code %d", resp.StatusCode)
	}

	return nil
}

// SendNotificationWithDB sends a notification and also saves it to the database
func (f *FCMService) SendNotificationWithDB(ctx context.Context, userID int, title, body string, data map[string]string, action string) error {
	err := f.SendNotificationToUser(ctx, userID, title, body, data)
	if err != nil {
		log.Printf("[fcm] error sending push notification to user %d: %v", userID, err)
		// Continue to save notification in DB even if push fails
	}

	_, err = f.db.Exec(`
		INSERT INTO notifications (user_id, message, status, action, created_at, updated_at)
		VALUES ($1, $2, 'unread', $3, NOW(), NOW())
	`, userID, body, action)
	if err != nil {
		return fmt.Errorf("error saving notification to database: %v", err)
	}

	return nil
}

// NotifyRFIAssigned pushes an RFI-assigned notification to the assignee.
func (f *FCMService) NotifyRFIAssigned(ctx context.Context, rfi models.RFI) error {
	title := "New RFI " + rfi.RFINumber
	body := rfi.Subject
	data := map[string]string{
		"type":   "rfi",
		"rfi_id": fmt.Sprintf("%d", rfi.RFIID),
		"action": fmt.Sprintf("/projects/%d/rfi/%d", rfi.ProjectID, rfi.RFIID),
	}
	return f.SendNotificationWithDB(ctx, rfi.AssignedTo, title, body, data, data["action"])
}

// NotifyDDSApproved pushes a drawing-approval notification to a user.
func (f *FCMService) NotifyDDSApproved(ctx context.Context, userID int, dds models.DDS) error {
	title := "Drawing " + dds.DrawingNumber + " approved at " + dds.ApprovalLevel
	body := dds.Title
	data := map[string]string{
		"type":   "dds",
		"dds_id": fmt.Sprintf("%d", dds.DDSID),
		"action": fmt.Sprintf("/projects/%d/dds/%d", dds.ProjectID, dds.DDSID),
	}
	return f.SendNotificationWithDB(ctx, userID, title, body, data, data["action"])
}
