// Package mail is the mailbox collaborator: IMAP fetch from the inbox
// and move-to-trash. It produces model.RawMessage values; nothing here
// interprets message content.
package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"apptrack/internal/config"
	"apptrack/internal/model"
)

// Selector picks which messages a fetch looks at: the N most recent, or
// everything received within the last D days. Exactly one field is set.
type Selector struct {
	Count int
	Days  int
}

// Client is a logged-in IMAP session with INBOX selected.
type Client struct {
	c         *imapclient.Client
	trash     string
	done      chan struct{}
	closeOnce sync.Once
}

// Dial connects over TLS, logs in, and selects INBOX. Promotional and
// social folders never enter the pipeline because only INBOX is read.
func Dial(ctx context.Context, cfg config.IMAPConfig, password string) (*Client, error) {
	if cfg.Host == "" || cfg.Username == "" || password == "" {
		return nil, eris.New("mail: host, username, and password are required")
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	c, err := imapclient.DialTLS(addr, &imapclient.Options{
		TLSConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
			ServerName: cfg.Host,
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "mail: dial")
	}

	// Best-effort close on context cancel; the done channel lets the
	// goroutine exit on a normal Close even when ctx never cancels.
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = c.Close()
		case <-done:
		}
	}()
	closeDone := func() { close(done) }

	if err := c.Login(cfg.Username, password).Wait(); err != nil {
		closeDone()
		_ = c.Close()
		return nil, eris.Wrap(err, "mail: login")
	}

	if _, err := c.Select("INBOX", &imap.SelectOptions{ReadOnly: false}).Wait(); err != nil {
		closeDone()
		_ = c.Close()
		return nil, eris.Wrap(err, "mail: select inbox")
	}

	trash := cfg.TrashMailbox
	if trash == "" {
		trash = "Trash"
	}
	return &Client{c: c, trash: trash, done: done}, nil
}

// Fetch returns the selected messages, newest first. The sequence is
// finite and non-restartable; callers fetch again for a fresh view.
func (m *Client) Fetch(ctx context.Context, sel Selector) ([]model.RawMessage, error) {
	criteria := &imap.SearchCriteria{}
	if sel.Days > 0 {
		criteria.Since = time.Now().AddDate(0, 0, -sel.Days)
	}

	searchData, err := m.c.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, eris.Wrap(err, "mail: uid search")
	}

	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}

	// Newest first; UIDs ascend with arrival order.
	for i, j := 0, len(uids)-1; i < j; i, j = i+1, j-1 {
		uids[i], uids[j] = uids[j], uids[i]
	}
	if sel.Count > 0 && len(uids) > sel.Count {
		uids = uids[:sel.Count]
	}

	bodyAll := &imap.FetchItemBodySection{
		Specifier: imap.PartSpecifierNone,
		Peek:      true, // don't set \Seen
	}
	fetchCmd := m.c.Fetch(imap.UIDSetNum(uids...), &imap.FetchOptions{
		UID:          true,
		Envelope:     true,
		InternalDate: true,
		BodySection:  []*imap.FetchItemBodySection{bodyAll},
	})
	defer func() { _ = fetchCmd.Close() }()

	out := make([]model.RawMessage, 0, len(uids))
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		msgData := fetchCmd.Next()
		if msgData == nil {
			break
		}
		buf, err := msgData.Collect()
		if err != nil {
			return nil, eris.Wrap(err, "mail: fetch collect")
		}

		raw := buildRawMessage(buf, bodyAll)
		if raw.ID == "" {
			continue
		}
		out = append(out, raw)
	}

	if err := fetchCmd.Close(); err != nil {
		return nil, eris.Wrap(err, "mail: fetch close")
	}
	return out, nil
}

// Trash moves a message to the trash mailbox. A message that is already
// gone is a no-op, not an error.
func (m *Client) Trash(ctx context.Context, id string) error {
	uid, err := strconv.ParseUint(id, 10, 32)
	if err != nil {
		return eris.Wrapf(err, "mail: bad message id %q", id)
	}

	if _, err := m.c.Move(imap.UIDSetNum(imap.UID(uid)), m.trash).Wait(); err != nil {
		// Moving a UID that no longer exists is how "already trashed"
		// surfaces; the outcome the caller wants already holds.
		if isMissingMessage(err) {
			zap.L().Debug("mail: trash no-op, message gone", zap.String("email_id", id))
			return nil
		}
		return eris.Wrapf(err, "mail: move %s to %s", id, m.trash)
	}
	return nil
}

// Close stops the cancel watcher, logs out, and drops the connection.
// Safe to call more than once.
func (m *Client) Close() {
	if m == nil {
		return
	}
	m.closeOnce.Do(func() {
		if m.done != nil {
			close(m.done)
		}
	})
	if m.c == nil {
		return
	}
	if err := m.c.Logout().Wait(); err != nil {
		zap.L().Debug("mail: logout", zap.Error(err))
	}
	_ = m.c.Close()
}
