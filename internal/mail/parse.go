package mail

import (
	"bytes"
	"encoding/base64"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	netmail "net/mail"
	"strconv"
	"strings"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"apptrack/internal/model"
)

const maxBodyBytes = 6 << 20

// buildRawMessage maps one fetched IMAP message onto the pipeline's
// model.RawMessage. The UID is the opaque id: stable for a mailbox
// across fetches.
func buildRawMessage(buf *imapclient.FetchMessageBuffer, section *imap.FetchItemBodySection) (raw model.RawMessage) {
	raw.ID = strconv.FormatUint(uint64(buf.UID), 10)

	if env := buf.Envelope; env != nil {
		raw.Subject = env.Subject
		raw.ReceivedAt = env.Date
		if len(env.From) > 0 {
			raw.Sender = env.From[0].Addr()
			raw.SenderDomain = strings.ToLower(env.From[0].Host)
		}
	}
	if raw.ReceivedAt.IsZero() {
		raw.ReceivedAt = buf.InternalDate
	}

	if b := buf.FindBodySection(section); len(b) > 0 {
		plain, html, hdr := extractTextParts(b)
		// HTML preferred; the extractor normalizes it to text anyway and
		// ATS mail often ships an empty plain part.
		raw.Body = html
		if raw.Body == "" {
			raw.Body = plain
		}
		fillFromHeaders(&raw, hdr)
	}

	return raw
}

// fillFromHeaders is the safety net for servers that return sparse
// envelopes: recover subject, sender, and date from the raw headers.
func fillFromHeaders(raw *model.RawMessage, hdr netmail.Header) {
	if hdr == nil {
		return
	}
	if raw.Subject == "" {
		raw.Subject = decodeWord(hdr.Get("Subject"))
	}
	if raw.Sender == "" {
		if addr, err := netmail.ParseAddress(hdr.Get("From")); err == nil {
			raw.Sender = addr.Address
			if at := strings.LastIndex(addr.Address, "@"); at >= 0 {
				raw.SenderDomain = strings.ToLower(addr.Address[at+1:])
			}
		}
	}
	if raw.ReceivedAt.IsZero() {
		if t, err := netmail.ParseDate(hdr.Get("Date")); err == nil {
			raw.ReceivedAt = t
		}
	}
}

// extractTextParts parses RFC822 bytes into the best plain and HTML
// bodies it can find, walking multipart structures recursively.
func extractTextParts(rawBytes []byte) (plain, html string, hdr netmail.Header) {
	msg, err := netmail.ReadMessage(bytes.NewReader(rawBytes))
	if err != nil {
		return string(rawBytes), "", nil
	}
	hdr = msg.Header

	body, _ := io.ReadAll(io.LimitReader(msg.Body, maxBodyBytes))
	plain, html = walkParts(msg.Header.Get("Content-Type"), msg.Header.Get("Content-Transfer-Encoding"), body)
	if plain == "" && html == "" {
		plain = string(body)
	}
	return plain, html, hdr
}

func walkParts(contentType, transferEncoding string, body []byte) (plain, html string) {
	cte := strings.ToLower(strings.TrimSpace(transferEncoding))

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return string(decodeTransfer(body, cte)), ""
	}
	mediaType = strings.ToLower(mediaType)

	if strings.HasPrefix(mediaType, "multipart/") {
		boundary := params["boundary"]
		if boundary == "" {
			return string(decodeTransfer(body, cte)), ""
		}
		mr := multipart.NewReader(bytes.NewReader(body), boundary)
		for {
			p, err := mr.NextPart()
			if err != nil {
				break
			}
			b, _ := io.ReadAll(io.LimitReader(p, maxBodyBytes))
			pl, ht := walkParts(
				p.Header.Get("Content-Type"),
				p.Header.Get("Content-Transfer-Encoding"),
				b,
			)
			if len(pl) > len(plain) {
				plain = pl
			}
			if len(ht) > len(html) {
				html = ht
			}
		}
		return plain, html
	}

	decoded := string(decodeTransfer(body, cte))
	if strings.HasPrefix(mediaType, "text/html") {
		return "", decoded
	}
	if strings.HasPrefix(mediaType, "text/plain") || mediaType == "" {
		return decoded, ""
	}
	return "", ""
}

func decodeTransfer(b []byte, cte string) []byte {
	switch cte {
	case "base64":
		dec := base64.NewDecoder(base64.StdEncoding, bytes.NewReader(b))
		out, _ := io.ReadAll(io.LimitReader(dec, maxBodyBytes))
		return out
	case "quoted-printable":
		dec := quotedprintable.NewReader(bytes.NewReader(b))
		out, _ := io.ReadAll(io.LimitReader(dec, maxBodyBytes))
		return out
	default:
		return b
	}
}

func decodeWord(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	dec := new(mime.WordDecoder)
	out, err := dec.DecodeHeader(s)
	if err != nil {
		return s
	}
	return out
}

func isMissingMessage(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no matching messages") ||
		strings.Contains(msg, "invalid messageset") ||
		strings.Contains(msg, "could not be found") ||
		strings.Contains(msg, "nonexistent")
}
