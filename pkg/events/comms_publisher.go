package events

import (
	"context"
	"fmt"
	"log/slog"

	comms "github.com/nats-io/nats.go"

	"github.com/morezero/command-registry/pkg/commsutil"
)

const commsPublisherLogPrefix = "events:comms_publisher"

// CommsPublisherOpts configures CommsPublisher. Nil or zero values use defaults.
type CommsPublisherOpts struct {
	// GlobalSubject overrides the global invoked event subject (e.g. from REGISTRY_EVENT_SUBJECT).
	GlobalSubject string
}

// CommsPublisher publishes invocation events to COMMS subjects.
type CommsPublisher struct {
	nc            *comms.Conn
	globalSubject string
}

// NewCommsPublisher creates a new CommsPublisher. Pass nil for opts to use defaults.
func NewCommsPublisher(nc *comms.Conn, opts *CommsPublisherOpts) *CommsPublisher {
	globalSubject := commsutil.SubjectInvokedEvent
	if opts != nil && opts.GlobalSubject != "" {
		globalSubject = opts.GlobalSubject
	}
	return &CommsPublisher{nc: nc, globalSubject: globalSubject}
}

// PublishInvoked publishes an InvokedEvent to both the per-command and the
// global subject.
func (p *CommsPublisher) PublishInvoked(_ context.Context, event *InvokedEvent) error {
	data, err := commsutil.EncodePayload(event)
	if err != nil {
		return fmt.Errorf("%s - failed to encode event: %w", commsPublisherLogPrefix, err)
	}

	keySubject := commsutil.BuildInvokedSubject(event.Key)
	if err := p.nc.Publish(keySubject, data); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to publish to %s: %v", commsPublisherLogPrefix, keySubject, err))
		return err
	}

	if err := p.nc.Publish(p.globalSubject, data); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to publish to %s: %v", commsPublisherLogPrefix, p.globalSubject, err))
		return err
	}

	slog.Debug(fmt.Sprintf("%s - Published invoked event for %s", commsPublisherLogPrefix, event.Key))
	return nil
}
