// Package notify publishes group lifecycle events to an external bus.
//
// Publishing is best effort: the workflow logs a failed Publish and moves
// on, since the state change it describes has already committed.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/segmentio/kafka-go"
)

// Event types.
const (
	GroupCreated       = "group.created"
	GroupApproved      = "group.approved"
	GroupRejected      = "group.rejected"
	GroupDeleted       = "group.deleted"
	MemberJoined       = "member.joined"
	MemberLeft         = "member.left"
	MemberRemoved      = "member.removed"
	JoinRequested      = "join_request.submitted"
	JoinApproved       = "join_request.approved"
	JoinRejected       = "join_request.rejected"
	InvitationSent     = "invitation.sent"
	InvitationAccepted = "invitation.accepted"
	InvitationDeclined = "invitation.declined"
	InvitationsExpired = "invitation.expired"
	ResourceAdded      = "resource.added"
	ResourceRemoved    = "resource.removed"
	MessagePosted      = "discussion.message_posted"
)

// Event is one lifecycle notification.
type Event struct {
	Type    string            `json:"type"`
	GroupID string            `json:"group_id,omitempty"`
	ActorID string            `json:"actor_id,omitempty"`
	UserID  string            `json:"user_id,omitempty"`
	At      time.Time         `json:"at"`
	Data    map[string]string `json:"data,omitempty"`
}

// key partitions events by group so one group's events stay ordered.
func (e Event) key() string {
	if e.GroupID != "" {
		return e.GroupID
	}
	return e.Type
}

// Publisher is the interface used by the workflow to publish events.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

/* -------------------------------------------------------------------------- */
/* Kafka                                                                       */
/* -------------------------------------------------------------------------- */

// Writer defines the subset of kafka.Writer we need.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes each event as a JSON message keyed by group id.
type KafkaPublisher struct {
	writer Writer
}

// NewKafka creates a publisher writing to topic on brokers.
func NewKafka(brokers []string, topic string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{writer: w}
}

// NewKafkaWithWriter allows injecting a test writer.
func NewKafkaWithWriter(w Writer) *KafkaPublisher {
	return &KafkaPublisher{writer: w}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:     []byte(e.key()),
		Value:   b,
		Headers: []kafka.Header{{Key: "event_type", Value: []byte(e.Type)}},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

/* -------------------------------------------------------------------------- */
/* SNS                                                                         */
/* -------------------------------------------------------------------------- */

// SNSAPI is the subset of the SNS client the publisher calls.
type SNSAPI interface {
	Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSPublisher publishes each event to one topic with an event_type
// attribute for subscription filter policies.
type SNSPublisher struct {
	api      SNSAPI
	topicARN string
}

func NewSNS(api SNSAPI, topicARN string) *SNSPublisher {
	return &SNSPublisher{api: api, topicARN: topicARN}
}

func (p *SNSPublisher) Publish(ctx context.Context, e Event) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = p.api.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Message:  aws.String(string(b)),
		Subject:  aws.String(e.Type),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			"event_type": {DataType: aws.String("String"), StringValue: aws.String(e.Type)},
		},
	})
	if err != nil {
		return fmt.Errorf("sns publish: %w", err)
	}
	return nil
}

func (p *SNSPublisher) Close() error { return nil }
