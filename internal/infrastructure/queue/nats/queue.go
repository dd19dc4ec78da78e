package nats

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/vportnov/briefly/internal/core/domain"
	"github.com/vportnov/briefly/internal/infrastructure/resilience"
)

// Queue carries summarize jobs on a queue-subscribed work subject and
// pause/resume/cancel signals on a broadcast control subject. Job messages
// are the summary id; control messages are "<job id>:<signal>".
type Queue struct {
	conn           *nats.Conn
	jobSubject     string
	controlSubject string
	executor       *resilience.Executor
}

func New(url, jobSubject, controlSubject string) (*Queue, error) {
	return NewWithOptions(url, jobSubject, controlSubject, Options{})
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
}

func NewWithOptions(url, jobSubject, controlSubject string, options Options) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}

	conn, err := nats.Connect(
		url,
		nats.Name("briefly"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Printf("nats disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("nats reconnected: %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:           conn,
		jobSubject:     jobSubject,
		controlSubject: controlSubject,
		executor:       options.ResilienceExecutor,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishSummarizeRequested(ctx context.Context, summaryID string) error {
	return q.publish(ctx, q.jobSubject, []byte(summaryID))
}

// PublishJobSignal broadcasts a control signal. Unlike job dispatch this is
// not queue-balanced: every worker sees it and the one holding the job acts.
func (q *Queue) PublishJobSignal(ctx context.Context, jobID string, signal domain.JobSignal) error {
	return q.publish(ctx, q.controlSubject, []byte(jobID+":"+string(signal)))
}

func (q *Queue) publish(ctx context.Context, subject string, payload []byte) error {
	call := func(_ context.Context) error {
		if err := q.conn.Publish(subject, payload); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	var err error
	if q.executor != nil {
		err = q.executor.Execute(ctx, "nats.publish", call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return wrapTemporaryIfNeeded(err)
	}
	return nil
}

// SubscribeSummarizeRequested joins the worker queue group and blocks until
// the context is cancelled, draining the subscription on the way out.
func (q *Queue) SubscribeSummarizeRequested(ctx context.Context, handler func(context.Context, string) error) error {
	sub, err := q.conn.QueueSubscribe(q.jobSubject, "workers", func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}

		handlerCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		if err := handler(handlerCtx, string(msg.Data)); err != nil {
			log.Printf("worker handler error for summary=%s: %v", string(msg.Data), err)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

// SubscribeJobSignals registers the control-signal handler and returns;
// delivery continues until the connection closes. Malformed messages are
// logged and dropped.
func (q *Queue) SubscribeJobSignals(_ context.Context, handler func(jobID string, signal domain.JobSignal)) error {
	_, err := q.conn.Subscribe(q.controlSubject, func(msg *nats.Msg) {
		jobID, rawSignal, ok := strings.Cut(string(msg.Data), ":")
		if !ok || jobID == "" {
			log.Printf("malformed control message: %q", string(msg.Data))
			return
		}
		switch signal := domain.JobSignal(rawSignal); signal {
		case domain.SignalPause, domain.SignalResume, domain.SignalCancel:
			handler(jobID, signal)
		default:
			log.Printf("unknown control signal %q for job=%s", rawSignal, jobID)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe control: %w", err)
	}
	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}
	return nil
}
