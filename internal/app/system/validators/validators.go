// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/studybuddy/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates collections (if missing) and tries to attach JSON-Schema
// validators. On servers that don't support collMod/validators (e.g. some
// DocumentDB versions), we log and skip gracefully.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	// helper: ensure collection exists (with truthful logging) and then validator (if provided)
	ensure := func(coll string, schema bson.M) {
		if _, err := ensureCollection(ctx, db, coll); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if schema == nil {
			return
		}
		if err := setValidator(ctx, db, coll, schema); err != nil {
			// DocumentDB or other deployments may not support collMod/validators.
			if isNoSuchCommand(err) || isNotImplemented(err) {
				zap.L().Info("validator skipped (unsupported)", zap.String("collection", coll))
				return
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	ensure("groups", groupsSchema())
	ensure("memberships", membershipsSchema())
	ensure("join_requests", joinRequestsSchema())
	ensure("invitations", invitationsSchema())
	ensure("discussions", discussionsSchema())
	ensure("user_group_notes", notesSchema())

	// Derived data; no validator.
	ensure("user_group_index", nil)

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers & logging ---------------------- */

// collectionExists returns true when <name> already exists.
// Uses ListCollectionNames to avoid "created collection" log when it didn't.
func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

// ensureCollection idempotently makes sure <name> exists.
// Returns created==true only if we actually created it.
func ensureCollection(ctx context.Context, db *mongo.Database, name string) (created bool, err error) {
	exists, listErr := collectionExists(ctx, db, name)
	if listErr == nil && exists {
		zap.L().Info("collection exists", zap.String("collection", name))
		return false, nil
	}
	// If listing failed, fall back to create-and-handle-race.
	if err := db.CreateCollection(ctx, name); err != nil {
		// NamespaceExists / already exists is fine (race or prior run).
		if isNamespaceExistsErr(err) {
			zap.L().Info("collection exists", zap.String("collection", name))
			return false, nil
		}
		zap.L().Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return true, nil
}

/* ------------------------------ validators ------------------------------- */

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	var out bson.M
	if err := db.RunCommand(ctx, cmd).Decode(&out); err != nil {
		return err
	}
	zap.L().Info("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

func isNamespaceExistsErr(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 48 || strings.Contains(strings.ToLower(ce.Message), "already exists")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "already exists") || strings.Contains(s, "namespace exists")
}

func isNoSuchCommand(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 59 || strings.Contains(strings.ToLower(ce.Message), "no such command")) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no such command")
}

func isNotImplemented(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 115 ||
		strings.Contains(strings.ToLower(ce.Message), "not implemented") ||
		strings.Contains(strings.ToLower(ce.Message), "not supported")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "not implemented") || strings.Contains(s, "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

var nonBlank = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}

func enum(values ...string) bson.M {
	a := bson.A{}
	for _, v := range values {
		a = append(a, v)
	}
	return bson.M{"enum": a}
}

func groupsSchema() bson.M {
	resourceTypes := enum(models.ResourceTypes...)
	resourceTypes["bsonType"] = "string"

	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "name_ci", "concept", "level", "time_commitment", "created_by", "status", "created_at"},
			"properties": bson.M{
				"name":            nonBlank,
				"name_ci":         nonBlank,
				"concept":         nonBlank,
				"level":           enum(models.GroupLevels...),
				"time_commitment": enum(models.TimeCommitments...),
				"created_by":      nonBlank,
				"status": enum(models.GroupPendingApproval, models.GroupActive,
					models.GroupRejected, models.GroupArchived),
				"resources": bson.M{
					"bsonType": "array",
					"items": bson.M{
						"bsonType": "object",
						"required": bson.A{"resource_id", "type", "title"},
						"properties": bson.M{
							"resource_id": nonBlank,
							"type":        resourceTypes,
							"title":       nonBlank,
						},
					},
				},
				"created_at": bson.M{"bsonType": "date"},
				"updated_at": bson.M{"bsonType": "date"},
			},
		},
	}
}

func membershipsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"group_id", "user_id", "status", "is_admin"},
			"properties": bson.M{
				"group_id": nonBlank,
				"user_id":  nonBlank,
				"is_admin": bson.M{"bsonType": "bool"},
				"status": enum(models.MemberActive, models.MemberLeft,
					models.MemberRemoved, models.MemberPendingApproval),
				"joined_at": bson.M{"bsonType": "date"},
			},
		},
	}
}

func joinRequestsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"group_id", "user_id", "status", "requested_at"},
			"properties": bson.M{
				"group_id":     nonBlank,
				"user_id":      nonBlank,
				"message":      bson.M{"bsonType": "string"},
				"status":       enum(models.RequestPending, models.RequestApproved, models.RequestRejected),
				"requested_at": bson.M{"bsonType": "date"},
				"processed_at": bson.M{"bsonType": "date"},
			},
		},
	}
}

func invitationsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"group_id", "invited_email", "invited_by", "status", "invitation_token", "sent_at", "expires_at"},
			"properties": bson.M{
				"group_id":         nonBlank,
				"invited_email":    nonBlank,
				"invited_by":       nonBlank,
				"invitation_token": nonBlank,
				"status": enum(models.InvitePending, models.InviteAccepted,
					models.InviteDeclined, models.InviteExpired),
				"sent_at":    bson.M{"bsonType": "date"},
				"expires_at": bson.M{"bsonType": "date"},
			},
		},
	}
}

func discussionsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"group_id", "messages"},
			"properties": bson.M{
				"group_id": nonBlank,
				"messages": bson.M{
					"bsonType": "array",
					"items": bson.M{
						"bsonType": "object",
						"required": bson.A{"message_id", "user_id", "message", "timestamp"},
						"properties": bson.M{
							"message_id": nonBlank,
							"user_id":    nonBlank,
							"message":    bson.M{"bsonType": "string", "maxLength": models.MaxMessageLength},
							"timestamp":  bson.M{"bsonType": "date"},
							"edited":     bson.M{"bsonType": "bool"},
						},
					},
				},
			},
		},
	}
}

func notesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"user_id", "group_id", "notes"},
			"properties": bson.M{
				"user_id":  nonBlank,
				"group_id": nonBlank,
				"notes":    bson.M{"bsonType": "string", "maxLength": models.MaxNotesLength},
			},
		},
	}
}
