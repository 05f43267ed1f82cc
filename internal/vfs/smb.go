package vfs

import (
	"context"
	"net"
	"os"
	"path"
	"strings"

	smb2 "github.com/hirochachacha/go-smb2"

	"github.com/odedia/translation-layer/internal/apperr"
)

// SMB is a VFS backed by an SMB2/3 share, for browsing a NAS over the
// network the way the teacher's fsutil package probes local disk space.
type SMB struct {
	host     string
	share    string
	username string
	password string
	domain   string
}

// NewSMB returns an SMB VFS. It doesn't dial anything until a method is
// called — a bad host/share only fails the first real operation, not
// construction.
func NewSMB(host, share, username, password, domain string) (*SMB, error) {
	if host == "" || share == "" {
		return nil, apperr.NewNotConfigured("smb host and share are required", nil)
	}
	return &SMB{host: host, share: share, username: username, password: password, domain: domain}, nil
}

// session opens a fresh TCP connection, SMB2 session and share mount.
// go-smb2 sessions are not safe to keep open across long idle periods on
// flaky networks, so this service dials once per operation rather than
// pooling a connection.
func (s *SMB) session(ctx context.Context) (*smb2.Share, func(), error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(s.host, "445"))
	if err != nil {
		return nil, nil, apperr.NewUpstreamUnavailable("cannot connect to smb host", err).WithContext("host", s.host)
	}

	dialer := &smb2.Dialer{
		Initiator: &smb2.NTLMInitiator{
			User:     s.username,
			Password: s.password,
			Domain:   s.domain,
		},
	}
	sess, err := dialer.DialContext(ctx, conn)
	if err != nil {
		conn.Close()
		return nil, nil, apperr.NewUpstreamUnavailable("smb session negotiation failed", err)
	}

	fs, err := sess.Mount(s.share)
	if err != nil {
		sess.Logoff()
		conn.Close()
		return nil, nil, apperr.NewUpstreamUnavailable("cannot mount smb share", err).WithContext("share", s.share)
	}

	cleanup := func() {
		fs.Umount()
		sess.Logoff()
		conn.Close()
	}
	return fs, cleanup, nil
}

func toSMBPath(p string) string {
	return strings.ReplaceAll(strings.TrimPrefix(path.Clean("/"+p), "/"), "/", `\`)
}

func (s *SMB) List(ctx context.Context, dir string) ([]Entry, error) {
	fs, cleanup, err := s.session(ctx)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	entries, err := fs.ReadDir(toSMBPath(dir))
	if err != nil {
		return nil, apperr.NewNotFound("cannot list smb directory", err).WithContext("path", dir)
	}

	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		out = append(out, Entry{
			Name:  e.Name(),
			Path:  path.Join(dir, e.Name()),
			IsDir: e.IsDir(),
			Size:  e.Size(),
		})
	}
	return out, nil
}

func (s *SMB) ReadSubtitle(ctx context.Context, p string) (string, error) {
	fs, cleanup, err := s.session(ctx)
	if err != nil {
		return "", err
	}
	defer cleanup()

	f, err := fs.Open(toSMBPath(p))
	if err != nil {
		return "", apperr.NewNotFound("cannot open smb file", err).WithContext("path", p)
	}
	defer f.Close()

	var b strings.Builder
	buf := make([]byte, 32*1024)
	for {
		n, rerr := f.Read(buf)
		if n > 0 {
			b.Write(buf[:n])
		}
		if rerr != nil {
			break
		}
	}
	return b.String(), nil
}

// WriteSubtitle writes via a temp-file-then-rename on the share itself.
func (s *SMB) WriteSubtitle(ctx context.Context, p string, text string) error {
	fs, cleanup, err := s.session(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	tmpPath := toSMBPath(p) + ".tmp"
	f, err := fs.Create(tmpPath)
	if err != nil {
		return apperr.NewInternal("cannot create smb temp file", err)
	}
	if _, err := f.Write([]byte(text)); err != nil {
		f.Close()
		fs.Remove(tmpPath)
		return apperr.NewInternal("cannot write smb temp file", err)
	}
	f.Close()

	if err := fs.Rename(tmpPath, toSMBPath(p)); err != nil {
		fs.Remove(tmpPath)
		return apperr.NewInternal("cannot rename smb temp file into place", err)
	}
	return nil
}

// WriteSubtitleDirect writes straight to the destination, skipping the
// rename indirection — a rename across SMB is its own round trip, and for
// a one-shot output write it buys nothing a failed direct write wouldn't
// already make obvious.
func (s *SMB) WriteSubtitleDirect(ctx context.Context, p string, text string) error {
	fs, cleanup, err := s.session(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	f, err := fs.Create(toSMBPath(p))
	if err != nil {
		return apperr.NewInternal("cannot create smb file", err)
	}
	defer f.Close()
	if _, err := f.Write([]byte(text)); err != nil {
		return apperr.NewInternal("cannot write smb file", err)
	}
	return nil
}

func (s *SMB) DownloadToTemp(ctx context.Context, p string) (string, func(), error) {
	return s.downloadLimited(ctx, p, -1)
}

func (s *SMB) DownloadHeaderToTemp(ctx context.Context, p string, maxBytes int64) (string, func(), error) {
	return s.downloadLimited(ctx, p, maxBytes)
}

func (s *SMB) downloadLimited(ctx context.Context, p string, maxBytes int64) (string, func(), error) {
	fs, cleanup, err := s.session(ctx)
	if err != nil {
		return "", nil, err
	}
	defer cleanup()

	src, err := fs.Open(toSMBPath(p))
	if err != nil {
		return "", nil, apperr.NewNotFound("cannot open smb file for download", err).WithContext("path", p)
	}
	defer src.Close()

	tmp, err := os.CreateTemp("", "vfs-smb-*")
	if err != nil {
		return "", nil, apperr.NewInternal("cannot create local temp file", err)
	}

	var copyErr error
	if maxBytes >= 0 {
		_, copyErr = copyLimited(tmp, src, maxBytes)
	} else {
		_, copyErr = copyLimited(tmp, src, 1<<62) // effectively unbounded
	}
	tmp.Close()
	if copyErr != nil {
		os.Remove(tmp.Name())
		return "", nil, apperr.NewUpstreamUnavailable("cannot copy smb file to local temp", copyErr)
	}

	tmpPath := tmp.Name()
	return tmpPath, func() { os.Remove(tmpPath) }, nil
}

func (s *SMB) ExtractVideoTitle(ctx context.Context, p string) (string, error) {
	base := path.Base(p)
	return strings.TrimSuffix(base, path.Ext(base)), nil
}
