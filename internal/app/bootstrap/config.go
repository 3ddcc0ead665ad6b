// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/studybuddy/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for StudyBuddy.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, group_store, etc.
//   - Environment variables: STUDYBUDDY_MONGO_URI, STUDYBUDDY_GROUP_STORE, etc.
//   - Command-line flags: --mongo_uri, --group_store, etc.
var appConfigKeys = []config.AppKey{
	{Name: "group_store", Default: "mongo", Desc: "Group data backend: 'mongo', 'dynamo' or 'memory'"},

	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "studybuddy", Desc: "MongoDB database name"},

	// DynamoDB configuration
	{Name: "dynamo_region", Default: "us-east-1", Desc: "AWS region for DynamoDB"},
	{Name: "dynamo_endpoint", Default: "", Desc: "DynamoDB endpoint override (e.g., http://localhost:8000)"},
	{Name: "dynamo_table_prefix", Default: "studybuddy_", Desc: "Prefix for DynamoDB table names"},
	{Name: "dynamo_auto_provision", Default: false, Desc: "Create missing DynamoDB tables at startup"},

	// Accounts
	{Name: "user_store", Default: "sqlite", Desc: "Account store: 'sqlite' or 'cognito'"},
	{Name: "sqlite_path", Default: "./studybuddy-users.db", Desc: "SQLite file for accounts"},
	{Name: "cognito_region", Default: "us-east-1", Desc: "AWS region for Cognito"},
	{Name: "cognito_user_pool_id", Default: "", Desc: "Cognito user pool ID"},
	{Name: "cognito_client_id", Default: "", Desc: "Cognito app client ID (ADMIN_USER_PASSWORD_AUTH enabled)"},

	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "studybuddy-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "720h", Desc: "Session cookie lifetime (e.g., 24h, 720h)"},

	// File storage configuration
	{Name: "storage_type", Default: "local", Desc: "Storage backend: 'local' or 's3'"},
	{Name: "storage_local_path", Default: "./uploads", Desc: "Local storage path for uploaded files"},
	{Name: "storage_local_url", Default: "/files", Desc: "URL prefix for serving local files"},

	// S3 configuration
	{Name: "storage_s3_region", Default: "", Desc: "AWS region for S3"},
	{Name: "storage_s3_bucket", Default: "", Desc: "S3 bucket name"},
	{Name: "storage_s3_prefix", Default: "resources/", Desc: "S3 key prefix"},

	// Email configuration
	{Name: "mail_provider", Default: "log", Desc: "Email provider: 'ses', 'sendgrid' or 'log'"},
	{Name: "mail_from", Default: "noreply@studybuddy.app", Desc: "From email address"},
	{Name: "mail_from_name", Default: "StudyBuddy", Desc: "From display name"},
	{Name: "ses_region", Default: "", Desc: "AWS region for SES"},
	{Name: "sendgrid_api_key", Default: "", Desc: "SendGrid API key"},

	// Lifecycle events
	{Name: "events_provider", Default: "none", Desc: "Event publisher: 'none', 'sns' or 'kafka'"},
	{Name: "sns_topic_arn", Default: "", Desc: "SNS topic ARN for lifecycle events"},
	{Name: "kafka_brokers", Default: "", Desc: "Comma-separated Kafka broker addresses"},
	{Name: "kafka_topic", Default: "studybuddy.events", Desc: "Kafka topic for lifecycle events"},

	// Links and expiry
	{Name: "base_url", Default: "http://localhost:8080", Desc: "Base URL for email links"},
	{Name: "meeting_base_url", Default: "https://meet.jit.si/studybuddy-", Desc: "Prefix for generated meeting links"},
	{Name: "invitation_ttl", Default: "168h", Desc: "How long an invitation can be accepted (e.g., 168h)"},
	{Name: "invitation_sweep_interval", Default: "15m", Desc: "How often overdue invitations are marked expired (0 disables)"},

	// SuperAdmin bootstrap
	{Name: "superadmin_email", Default: "", Desc: "Email of an existing account to promote to super admin on startup"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, STUDYBUDDY_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "STUDYBUDDY", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		GroupStore: strings.ToLower(appValues.String("group_store")),

		MongoURI:      appValues.String("mongo_uri"),
		MongoDatabase: appValues.String("mongo_database"),

		DynamoRegion:        appValues.String("dynamo_region"),
		DynamoEndpoint:      appValues.String("dynamo_endpoint"),
		DynamoTablePrefix:   appValues.String("dynamo_table_prefix"),
		DynamoAutoProvision: appValues.Bool("dynamo_auto_provision"),

		UserStore:         strings.ToLower(appValues.String("user_store")),
		SQLitePath:        appValues.String("sqlite_path"),
		CognitoRegion:     appValues.String("cognito_region"),
		CognitoUserPoolID: appValues.String("cognito_user_pool_id"),
		CognitoClientID:   appValues.String("cognito_client_id"),

		SessionKey:    appValues.String("session_key"),
		SessionName:   appValues.String("session_name"),
		SessionDomain: appValues.String("session_domain"),
		SessionMaxAge: appValues.Duration("session_max_age", 30*24*time.Hour),

		// File storage
		StorageType:      strings.ToLower(appValues.String("storage_type")),
		StorageLocalPath: appValues.String("storage_local_path"),
		StorageLocalURL:  appValues.String("storage_local_url"),

		// S3
		StorageS3Region: appValues.String("storage_s3_region"),
		StorageS3Bucket: appValues.String("storage_s3_bucket"),
		StorageS3Prefix: appValues.String("storage_s3_prefix"),

		// Email
		MailProvider:   strings.ToLower(appValues.String("mail_provider")),
		MailFrom:       appValues.String("mail_from"),
		MailFromName:   appValues.String("mail_from_name"),
		SESRegion:      appValues.String("ses_region"),
		SendGridAPIKey: appValues.String("sendgrid_api_key"),

		// Events
		EventsProvider: strings.ToLower(appValues.String("events_provider")),
		SNSTopicARN:    appValues.String("sns_topic_arn"),
		KafkaBrokers:   splitList(appValues.String("kafka_brokers")),
		KafkaTopic:     appValues.String("kafka_topic"),

		// Links and expiry
		BaseURL:                 appValues.String("base_url"),
		MeetingBaseURL:          appValues.String("meeting_base_url"),
		InvitationTTL:           appValues.Duration("invitation_ttl", models.DefaultInvitationTTL),
		InvitationSweepInterval: appValues.Duration("invitation_sweep_interval", 15*time.Minute),

		// SuperAdmin
		SuperAdminEmail: appValues.String("superadmin_email"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// Each selected provider must have the settings it needs, so a typo fails
// here rather than at the first request.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	switch appCfg.GroupStore {
	case "mongo":
		if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
			logger.Error("invalid MongoDB URI", zap.Error(err))
			return fmt.Errorf("invalid MongoDB URI: %w", err)
		}
		if appCfg.MongoDatabase == "" {
			return fmt.Errorf("mongo_database is required")
		}
	case "dynamo":
		if appCfg.DynamoRegion == "" {
			return fmt.Errorf("group_store=dynamo requires dynamo_region")
		}
	case "memory":
		if coreCfg != nil && coreCfg.Env == "prod" {
			logger.Warn("in-memory group store in prod; all group data is lost on restart")
		}
	default:
		return fmt.Errorf("unknown group_store %q (want mongo, dynamo or memory)", appCfg.GroupStore)
	}

	switch appCfg.UserStore {
	case "sqlite":
		if appCfg.SQLitePath == "" {
			return fmt.Errorf("user_store=sqlite requires sqlite_path")
		}
	case "cognito":
		if appCfg.CognitoUserPoolID == "" || appCfg.CognitoClientID == "" {
			return fmt.Errorf("user_store=cognito requires cognito_user_pool_id and cognito_client_id")
		}
	default:
		return fmt.Errorf("unknown user_store %q (want sqlite or cognito)", appCfg.UserStore)
	}

	switch appCfg.StorageType {
	case "local":
		if appCfg.StorageLocalPath == "" {
			return fmt.Errorf("storage_type=local requires storage_local_path")
		}
	case "s3":
		if appCfg.StorageS3Bucket == "" || appCfg.StorageS3Region == "" {
			return fmt.Errorf("storage_type=s3 requires storage_s3_bucket and storage_s3_region")
		}
	default:
		return fmt.Errorf("unknown storage_type %q (want local or s3)", appCfg.StorageType)
	}

	switch appCfg.MailProvider {
	case "log":
	case "ses":
		if appCfg.SESRegion == "" {
			return fmt.Errorf("mail_provider=ses requires ses_region")
		}
	case "sendgrid":
		if appCfg.SendGridAPIKey == "" {
			return fmt.Errorf("mail_provider=sendgrid requires sendgrid_api_key")
		}
	default:
		return fmt.Errorf("unknown mail_provider %q (want ses, sendgrid or log)", appCfg.MailProvider)
	}

	switch appCfg.EventsProvider {
	case "none", "":
	case "sns":
		if appCfg.SNSTopicARN == "" {
			return fmt.Errorf("events_provider=sns requires sns_topic_arn")
		}
	case "kafka":
		if len(appCfg.KafkaBrokers) == 0 || appCfg.KafkaTopic == "" {
			return fmt.Errorf("events_provider=kafka requires kafka_brokers and kafka_topic")
		}
	default:
		return fmt.Errorf("unknown events_provider %q (want none, sns or kafka)", appCfg.EventsProvider)
	}

	if appCfg.InvitationTTL <= 0 {
		return fmt.Errorf("invitation_ttl must be positive")
	}
	if coreCfg != nil && coreCfg.Env == "prod" && strings.HasPrefix(appCfg.SessionKey, "dev-only") {
		return fmt.Errorf("session_key must be set in prod")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
