package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
)

// Notifier publishes session activity over a PostgreSQL NOTIFY channel so a
// clinician dashboard can follow sessions without polling.
type Notifier struct {
	DB      *sql.DB
	Channel string
}

// NewNotifier constructs a Notifier for the given channel name.
func NewNotifier(db *sql.DB, channel string) *Notifier {
	return &Notifier{DB: db, Channel: channel}
}

// Notify publishes the session id on the channel.
func (n *Notifier) Notify(ctx context.Context, sessionID string) error {
	_, err := n.DB.ExecContext(ctx, `SELECT pg_notify($1, $2)`, n.Channel, sessionID)
	return err
}

// Listen subscribes to the channel and yields session ids until the context
// is cancelled.  It opens its own connection via pq.Listener so it does not
// interfere with the pooled handle.
func Listen(ctx context.Context, dsn, channel string) (<-chan string, error) {
	listener := pq.NewListener(dsn, 2*time.Second, time.Minute, nil)
	if err := listener.Listen(channel); err != nil {
		_ = listener.Close()
		return nil, err
	}

	ch := make(chan string)
	go func() {
		defer func() {
			_ = listener.Close()
			close(ch)
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case notification, ok := <-listener.Notify:
				if !ok {
					return
				}
				// A nil notification marks a connection re-establishment.
				if notification == nil {
					continue
				}
				select {
				case ch <- notification.Extra:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return ch, nil
}
