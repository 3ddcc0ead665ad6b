// internal/domain/models/resource.go
package models

import (
	"time"
)

// Canonical resource type identifiers stored in Resource.Type.
const (
	ResourceTypeVideo    = "video"
	ResourceTypeArticle  = "article"
	ResourceTypeDocument = "document"
	ResourceTypeLink     = "link"
	ResourceTypeBook     = "book"
)

// ResourceTypes is the full set of allowed resource type identifiers.
var ResourceTypes = []string{
	ResourceTypeVideo,
	ResourceTypeArticle,
	ResourceTypeDocument,
	ResourceTypeLink,
	ResourceTypeBook,
}

// Resource is embedded in Group.Resources in upload order.
//
// UploadedByName is cached at upload time and is not refreshed when the
// uploader renames their profile.
type Resource struct {
	ID          string `bson:"resource_id" json:"id" dynamodbav:"resource_id"`
	Type        string `bson:"type" json:"type" dynamodbav:"type"`
	Title       string `bson:"title" json:"title" dynamodbav:"title"`
	URL         string `bson:"url,omitempty" json:"url,omitempty" dynamodbav:"url,omitempty"`
	Description string `bson:"description,omitempty" json:"description,omitempty" dynamodbav:"description,omitempty"`

	// ObjectKey is set for files stored in the blob store.
	ObjectKey string `bson:"object_key,omitempty" json:"object_key,omitempty" dynamodbav:"object_key,omitempty"`

	UploadedBy     string    `bson:"uploaded_by" json:"uploaded_by" dynamodbav:"uploaded_by"`
	UploadedByName string    `bson:"uploaded_by_name" json:"uploaded_by_name" dynamodbav:"uploaded_by_name"`
	UploadedAt     time.Time `bson:"uploaded_at" json:"uploaded_at" dynamodbav:"uploaded_at"`
}
