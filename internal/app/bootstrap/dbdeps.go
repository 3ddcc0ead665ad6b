// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	dynamostore "github.com/dalemusser/studybuddy/internal/app/store/dynamo"
	"github.com/dalemusser/studybuddy/internal/app/repo"
	"github.com/dalemusser/studybuddy/internal/app/system/blobstore"
	"github.com/dalemusser/studybuddy/internal/app/system/notify"
	"github.com/dalemusser/studybuddy/internal/app/system/workers"
	"github.com/dalemusser/studybuddy/internal/app/workflow"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
//
// Exactly one group-data engine is populated (MongoClient/MongoDatabase,
// Dynamo, or neither for the in-memory backend). Service is the workflow
// layer every feature handler is built on.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database
	Dynamo        *dynamostore.Store

	Users     repo.Users
	Blobs     blobstore.Store
	LocalBlob *blobstore.Local // set when uploads live on local disk
	Events    notify.Publisher

	Service   *workflow.Service
	Scheduler *workers.Scheduler
}
