// internal/app/bootstrap/connect.go
package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/dalemusser/studybuddy/internal/app/repo"
	cognitostore "github.com/dalemusser/studybuddy/internal/app/store/cognito"
	discussionstore "github.com/dalemusser/studybuddy/internal/app/store/discussions"
	dynamostore "github.com/dalemusser/studybuddy/internal/app/store/dynamo"
	groupstore "github.com/dalemusser/studybuddy/internal/app/store/groups"
	invitationstore "github.com/dalemusser/studybuddy/internal/app/store/invitations"
	joinrequeststore "github.com/dalemusser/studybuddy/internal/app/store/joinrequests"
	membershipstore "github.com/dalemusser/studybuddy/internal/app/store/memberships"
	"github.com/dalemusser/studybuddy/internal/app/store/memstore"
	notestore "github.com/dalemusser/studybuddy/internal/app/store/notes"
	userstore "github.com/dalemusser/studybuddy/internal/app/store/users"
	"github.com/dalemusser/studybuddy/internal/app/system/blobstore"
	"github.com/dalemusser/studybuddy/internal/app/system/mailer"
	"github.com/dalemusser/studybuddy/internal/app/system/notify"
	"github.com/dalemusser/studybuddy/internal/app/system/tasks"
	"github.com/dalemusser/studybuddy/internal/app/system/timeouts"
	"github.com/dalemusser/studybuddy/internal/app/system/txn"
	"github.com/dalemusser/studybuddy/internal/app/system/workers"
	"github.com/dalemusser/studybuddy/internal/app/workflow"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// ConnectDB opens every backend the config selects and assembles the
// workflow service over them. On failure anything already opened is
// closed again.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (deps DBDeps, err error) {
	defer func() {
		if err != nil {
			closeDeps(context.Background(), deps, logger)
			deps = DBDeps{}
		}
	}()

	backend, err := connectGroupStore(ctx, appCfg, &deps, logger)
	if err != nil {
		return deps, err
	}

	if deps.Users, err = connectUserStore(ctx, appCfg, logger); err != nil {
		return deps, err
	}
	if deps.Blobs, deps.LocalBlob, err = connectBlobStore(ctx, appCfg, logger); err != nil {
		return deps, err
	}
	mail, err := newMailer(ctx, appCfg, logger)
	if err != nil {
		return deps, err
	}
	if deps.Events, err = newPublisher(ctx, appCfg, logger); err != nil {
		return deps, err
	}

	deps.Service = workflow.New(workflow.Config{
		SiteName:       "StudyBuddy",
		BaseURL:        appCfg.BaseURL,
		MeetingBaseURL: appCfg.MeetingBaseURL,
		InvitationTTL:  appCfg.InvitationTTL,
	}, workflow.Deps{
		Backend: backend,
		Users:   deps.Users,
		Mailer:  mail,
		Events:  deps.Events,
		Blobs:   deps.Blobs,
		Logger:  logger,
	})

	var jobs []tasks.Job
	if appCfg.InvitationSweepInterval > 0 {
		jobs = append(jobs, tasks.InvitationExpiryJob(deps.Service, appCfg.InvitationSweepInterval))
	}
	deps.Scheduler = workers.NewScheduler(logger, jobs...)

	logger.Info("backends connected",
		zap.String("group_store", backend.Name),
		zap.String("user_store", appCfg.UserStore),
		zap.String("storage", appCfg.StorageType),
		zap.String("mail", appCfg.MailProvider),
		zap.String("events", appCfg.EventsProvider),
	)
	return deps, nil
}

func connectGroupStore(ctx context.Context, appCfg AppConfig, deps *DBDeps, logger *zap.Logger) (repo.Backend, error) {
	switch appCfg.GroupStore {
	case "mongo":
		client, err := connectMongo(ctx, appCfg.MongoURI)
		if err != nil {
			logger.Error("MongoDB connect failed", zap.Error(err))
			return repo.Backend{}, err
		}
		deps.MongoClient = client
		deps.MongoDatabase = client.Database(appCfg.MongoDatabase)
		logger.Info("connected to MongoDB", zap.String("database", appCfg.MongoDatabase))
		return mongoBackend(client, deps.MongoDatabase, logger), nil

	case "dynamo":
		cfg, err := loadAWSConfig(ctx, appCfg.DynamoRegion)
		if err != nil {
			return repo.Backend{}, err
		}
		if appCfg.DynamoEndpoint != "" && !hasStaticCredentials(ctx, cfg) {
			// DynamoDB Local accepts any credentials but still requires some.
			cfg.Credentials = credentials.NewStaticCredentialsProvider("local", "local", "")
		}
		client := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
			if appCfg.DynamoEndpoint != "" {
				o.BaseEndpoint = aws.String(appCfg.DynamoEndpoint)
			}
		})
		deps.Dynamo = dynamostore.New(client, appCfg.DynamoTablePrefix, logger)
		logger.Info("using DynamoDB",
			zap.String("region", appCfg.DynamoRegion),
			zap.String("table_prefix", appCfg.DynamoTablePrefix))
		return deps.Dynamo.Backend(), nil

	case "memory":
		logger.Warn("using in-memory group store; data is lost on restart")
		return memstore.New().Backend(), nil
	}
	return repo.Backend{}, fmt.Errorf("unknown group_store %q", appCfg.GroupStore)
}

func connectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Long())
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

// mongoBackend assembles the MongoDB repositories.
func mongoBackend(client *mongo.Client, db *mongo.Database, logger *zap.Logger) repo.Backend {
	return repo.Backend{
		Name:        "mongo",
		Groups:      groupstore.New(db),
		Memberships: membershipstore.New(db),
		Index:       membershipstore.NewIndex(db),
		Requests:    joinrequeststore.New(db),
		Invitations: invitationstore.New(db),
		Discussions: discussionstore.New(db),
		Notes:       notestore.New(db),
		Tx:          txn.NewRunner(db, logger),
		Ping: func(ctx context.Context) error {
			return client.Ping(ctx, readpref.Primary())
		},
	}
}

func connectUserStore(ctx context.Context, appCfg AppConfig, logger *zap.Logger) (repo.Users, error) {
	switch appCfg.UserStore {
	case "sqlite":
		s, err := userstore.Open(appCfg.SQLitePath)
		if err != nil {
			logger.Error("open user store failed", zap.String("path", appCfg.SQLitePath), zap.Error(err))
			return nil, err
		}
		return s, nil
	case "cognito":
		cfg, err := loadAWSConfig(ctx, appCfg.CognitoRegion)
		if err != nil {
			return nil, err
		}
		return cognitostore.New(cip.NewFromConfig(cfg), appCfg.CognitoUserPoolID, appCfg.CognitoClientID), nil
	}
	return nil, fmt.Errorf("unknown user_store %q", appCfg.UserStore)
}

func connectBlobStore(ctx context.Context, appCfg AppConfig, logger *zap.Logger) (blobstore.Store, *blobstore.Local, error) {
	switch appCfg.StorageType {
	case "local":
		local, err := blobstore.NewLocal(appCfg.StorageLocalPath, appCfg.StorageLocalURL)
		if err != nil {
			logger.Error("local storage init failed", zap.String("path", appCfg.StorageLocalPath), zap.Error(err))
			return nil, nil, err
		}
		return local, local, nil
	case "s3":
		cfg, err := loadAWSConfig(ctx, appCfg.StorageS3Region)
		if err != nil {
			return nil, nil, err
		}
		return blobstore.NewS3(s3.NewFromConfig(cfg), appCfg.StorageS3Bucket, appCfg.StorageS3Prefix), nil, nil
	}
	return nil, nil, fmt.Errorf("unknown storage_type %q", appCfg.StorageType)
}

func newMailer(ctx context.Context, appCfg AppConfig, logger *zap.Logger) (mailer.Mailer, error) {
	from := mailer.From{Address: appCfg.MailFrom, Name: appCfg.MailFromName}
	switch appCfg.MailProvider {
	case "log":
		return mailer.NewLog(logger), nil
	case "ses":
		cfg, err := loadAWSConfig(ctx, appCfg.SESRegion)
		if err != nil {
			return nil, err
		}
		return mailer.NewSES(sesv2.NewFromConfig(cfg), from), nil
	case "sendgrid":
		return mailer.NewSendGrid(appCfg.SendGridAPIKey, from), nil
	}
	return nil, fmt.Errorf("unknown mail_provider %q", appCfg.MailProvider)
}

func newPublisher(ctx context.Context, appCfg AppConfig, logger *zap.Logger) (notify.Publisher, error) {
	switch appCfg.EventsProvider {
	case "", "none":
		return notify.Nop{}, nil
	case "kafka":
		logger.Info("publishing events to Kafka", zap.Strings("brokers", appCfg.KafkaBrokers), zap.String("topic", appCfg.KafkaTopic))
		return notify.NewKafka(appCfg.KafkaBrokers, appCfg.KafkaTopic), nil
	case "sns":
		// SNS ARNs carry their region: arn:aws:sns:<region>:<account>:<topic>.
		cfg, err := loadAWSConfig(ctx, arnRegion(appCfg.SNSTopicARN))
		if err != nil {
			return nil, err
		}
		return notify.NewSNS(sns.NewFromConfig(cfg), appCfg.SNSTopicARN), nil
	}
	return nil, fmt.Errorf("unknown events_provider %q", appCfg.EventsProvider)
}

func loadAWSConfig(ctx context.Context, region string) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load AWS config: %w", err)
	}
	return cfg, nil
}

func hasStaticCredentials(ctx context.Context, cfg aws.Config) bool {
	if cfg.Credentials == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()
	_, err := cfg.Credentials.Retrieve(ctx)
	return err == nil
}

func arnRegion(arn string) string {
	parts := strings.SplitN(arn, ":", 6)
	if len(parts) < 6 {
		return ""
	}
	return parts[3]
}

// closeDeps releases everything ConnectDB opened. Shutdown and the
// ConnectDB failure path share it.
func closeDeps(ctx context.Context, deps DBDeps, logger *zap.Logger) error {
	var firstErr error
	if deps.Scheduler != nil {
		deps.Scheduler.Stop()
	}
	if deps.Events != nil {
		if err := deps.Events.Close(); err != nil {
			logger.Warn("event publisher close failed", zap.Error(err))
		}
	}
	if c, ok := deps.Users.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			logger.Warn("user store close failed", zap.Error(err))
		}
	}
	if deps.MongoClient != nil {
		logger.Info("disconnecting MongoDB client")
		if err := deps.MongoClient.Disconnect(ctx); err != nil {
			logger.Error("MongoDB disconnect failed", zap.Error(err))
			firstErr = err
		}
	}
	return firstErr
}
