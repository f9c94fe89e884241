package backend

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/netip"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
)

// Profile describes a router flavor: how to start its mirroring daemon
// and the shortest slot it can honor.
type Profile struct {
	Name string
	// Startup is the daemon command line; the placeholders
	// {collector_address}, {source_address} and {encap_address} are
	// substituted at connection time.
	Startup string
	// MinSlot is the activation granularity measured on this platform.
	MinSlot time.Duration
}

// LinuxProfile drives a Linux router through iptables.
var LinuxProfile = Profile{
	Name:    "linux",
	Startup: "/bin/stroboscope-linux-backend {collector_address} {source_address} {encap_address}",
	MinSlot: 25 * time.Millisecond,
}

// IOSProfile drives a Cisco router through its scripting API. The floor
// comes from activation measurements on a C7018.
var IOSProfile = Profile{
	Name:    "ios",
	Startup: "source stroboscope-ios-backend",
	MinSlot: 23 * time.Millisecond,
}

// ProfileByName resolves a configured profile name.
func ProfileByName(name string) (Profile, bool) {
	switch name {
	case "", LinuxProfile.Name:
		return LinuxProfile, true
	case IOSProfile.Name:
		return IOSProfile, true
	}
	return Profile{}, false
}

// SSHConfig carries the connection parameters of the SSH backend.
type SSHConfig struct {
	// User is the login on the routers; root when empty.
	User string
	// KeyPath points at the private key to authenticate with.
	KeyPath string
	// CollectorAddress is where the daemons send mirrored traffic.
	CollectorAddress string
	// EncapAddress terminates the GRE tunnels.
	EncapAddress string
	// DialTimeout bounds each connection attempt.
	DialTimeout time.Duration
}

// SSH activates rules by driving one mirroring daemon per router over a
// long-lived SSH session.
type SSH struct {
	profile Profile
	cfg     SSHConfig
	log     *zap.Logger

	mu       sync.Mutex
	sessions map[netip.Addr]*routerSession
}

type routerSession struct {
	client *ssh.Client
	stdin  io.WriteCloser
}

// NewSSH builds the SSH backend for a router profile.
func NewSSH(profile Profile, cfg SSHConfig, log *zap.Logger) *SSH {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.User == "" {
		cfg.User = "root"
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 10 * time.Second
	}
	return &SSH{
		profile:  profile,
		cfg:      cfg,
		log:      log,
		sessions: make(map[netip.Addr]*routerSession),
	}
}

// MinSlotDuration implements Backend.
func (s *SSH) MinSlotDuration() time.Duration { return s.profile.MinSlot }

// Activate implements Backend: one line per slot on the daemon's stdin.
func (s *SSH) Activate(ctx context.Context, addr netip.Addr, rules []Rule, duration time.Duration) error {
	sess, err := s.connect(ctx, addr)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(sess.stdin, renderActivation(duration, rules)); err != nil {
		// The session died; drop it so the next slot redials.
		s.drop(addr)
		return fmt.Errorf("backend: activation on %s failed: %w", addr, err)
	}
	return nil
}

// connect returns the cached session towards the router, dialing and
// starting the daemon on first use.
func (s *SSH) connect(ctx context.Context, addr netip.Addr) (*routerSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[addr]; ok {
		return sess, nil
	}
	s.log.Debug("opening ssh connection", zap.Stringer("router", addr))

	auth, err := s.auth()
	if err != nil {
		return nil, err
	}
	conf := &ssh.ClientConfig{
		User: s.cfg.User,
		Auth: auth,
		// Routers are reached over the management network; their host
		// keys are not tracked, matching the reference deployment.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         s.cfg.DialTimeout,
	}
	dialer := net.Dialer{Timeout: s.cfg.DialTimeout}
	tcp, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(addr.String(), "22"))
	if err != nil {
		return nil, fmt.Errorf("backend: cannot reach %s: %w", addr, err)
	}
	conn, chans, reqs, err := ssh.NewClientConn(tcp, addr.String(), conf)
	if err != nil {
		tcp.Close()
		return nil, fmt.Errorf("backend: ssh handshake with %s failed: %w", addr, err)
	}
	client := ssh.NewClient(conn, chans, reqs)

	session, err := client.NewSession()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("backend: cannot open session on %s: %w", addr, err)
	}
	stdin, err := session.StdinPipe()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("backend: no stdin towards %s: %w", addr, err)
	}
	if err := session.Start(s.startupLine(addr)); err != nil {
		client.Close()
		return nil, fmt.Errorf("backend: cannot start the daemon on %s: %w", addr, err)
	}
	sess := &routerSession{client: client, stdin: stdin}
	s.sessions[addr] = sess
	return sess, nil
}

func (s *SSH) startupLine(addr netip.Addr) string {
	r := strings.NewReplacer(
		"{collector_address}", s.cfg.CollectorAddress,
		"{source_address}", addr.String(),
		"{encap_address}", s.cfg.EncapAddress,
	)
	return r.Replace(s.profile.Startup)
}

func (s *SSH) auth() ([]ssh.AuthMethod, error) {
	if s.cfg.KeyPath == "" {
		return nil, fmt.Errorf("backend: no ssh key configured")
	}
	raw, err := os.ReadFile(s.cfg.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("backend: cannot read ssh key: %w", err)
	}
	signer, err := ssh.ParsePrivateKey(raw)
	if err != nil {
		return nil, fmt.Errorf("backend: cannot parse ssh key: %w", err)
	}
	return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil
}

func (s *SSH) drop(addr netip.Addr) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[addr]; ok {
		sess.client.Close()
		delete(s.sessions, addr)
	}
}

// Close implements Backend.
func (s *SSH) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var firstErr error
	for addr, sess := range s.sessions {
		if err := sess.client.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(s.sessions, addr)
	}
	return firstErr
}
