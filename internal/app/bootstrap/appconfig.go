// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables (STUDYBUDDY_*),
// configuration files, or command-line flags (loaded in LoadConfig). They
// represent *app-level* configuration; WAFFLE's CoreConfig covers ports,
// TLS, logging, CORS and request limits.
//
// Several settings pick an implementation: GroupStore chooses where group
// data lives, UserStore where accounts live, StorageType where uploads go,
// MailProvider how email is sent and EventsProvider where lifecycle events
// are published.
type AppConfig struct {
	// Group-data backend: "mongo", "dynamo" or "memory"
	GroupStore string

	// MongoDB connection configuration (GroupStore "mongo")
	MongoURI      string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase string // Database name within MongoDB

	// DynamoDB configuration (GroupStore "dynamo")
	DynamoRegion        string // AWS region
	DynamoEndpoint      string // Endpoint override, e.g. http://localhost:8000 for DynamoDB Local
	DynamoTablePrefix   string // Prefix for every table name (e.g., "studybuddy_")
	DynamoAutoProvision bool   // Create missing tables at startup

	// Account store: "sqlite" or "cognito"
	UserStore         string
	SQLitePath        string // SQLite file for the sqlite user store
	CognitoRegion     string
	CognitoUserPoolID string
	CognitoClientID   string

	// Session management configuration
	SessionKey    string        // Secret key for signing session cookies (must be strong in production)
	SessionName   string        // Cookie name for sessions (default: studybuddy-session)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // Cookie lifetime

	// File storage configuration
	StorageType      string // Storage backend: "local" or "s3"
	StorageLocalPath string // Local storage path (e.g., "./uploads")
	StorageLocalURL  string // URL prefix for serving local files (e.g., "/files")

	// S3 configuration (only used if StorageType is "s3")
	StorageS3Region string // AWS region
	StorageS3Bucket string // S3 bucket name
	StorageS3Prefix string // Key prefix (e.g., "resources/")

	// Email configuration
	MailProvider   string // "ses", "sendgrid" or "log"
	MailFrom       string // From email address (e.g., noreply@studybuddy.app)
	MailFromName   string // From display name (e.g., StudyBuddy)
	SESRegion      string // AWS region for SES
	SendGridAPIKey string

	// Lifecycle events: "none", "sns" or "kafka"
	EventsProvider string
	SNSTopicARN    string
	KafkaBrokers   []string
	KafkaTopic     string

	// Links and expiry
	BaseURL                 string        // e.g., "https://studybuddy.app" or "http://localhost:8080"
	MeetingBaseURL          string        // prefix for generated meeting links
	InvitationTTL           time.Duration // how long an invitation stays redeemable
	InvitationSweepInterval time.Duration // how often overdue invitations are marked expired; 0 disables

	// SuperAdmin bootstrap
	SuperAdminEmail string
}
