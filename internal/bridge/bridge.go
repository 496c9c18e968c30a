package bridge

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"inputpipe/internal/input"
	"inputpipe/internal/metrics"
	"inputpipe/internal/world"
)

// Config controls the bridge socket.
type Config struct {
	Address      string        `mapstructure:"address"`
	PollInterval time.Duration `mapstructure:"poll_interval"` // minimum gap between polls
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	IOTimeout    time.Duration `mapstructure:"io_timeout"` // upper bound on a single send or receive
}

func DefaultConfig() Config {
	return Config{
		Address:      DefaultAddress,
		PollInterval: 20 * time.Millisecond,
		DialTimeout:  250 * time.Millisecond,
		IOTimeout:    time.Millisecond,
	}
}

// Dialer opens the bridge socket. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

type dialResult struct {
	conn net.Conn
	err  error
}

// Bridge is the external controller stage. All methods except Close must be
// called from the tick thread.
type Bridge struct {
	cfg     Config
	dialer  Dialer
	clock   world.Clock
	limiter *rate.Limiter
	log     *zap.Logger

	conn    net.Conn
	dialing bool
	dialCh  chan dialResult

	tx      []byte
	rx      []byte
	scratch [CommandSize * 4]byte

	latest     Command
	hasCommand bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a disconnected bridge. The first poll starts a background dial.
func New(cfg Config, dialer Dialer, clock world.Clock, log *zap.Logger) *Bridge {
	if dialer == nil {
		dialer = &net.Dialer{}
	}
	if clock == nil {
		clock = world.SystemClock{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Bridge{
		cfg:     cfg,
		dialer:  dialer,
		clock:   clock,
		limiter: rate.NewLimiter(rate.Every(cfg.PollInterval), 1),
		log:     log.With(zap.String("addr", cfg.Address)),
		dialCh:  make(chan dialResult, 1),
		tx:      make([]byte, 0, ObservationSize),
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (b *Bridge) Connected() bool { return b.conn != nil }

// Latest returns the active override, if any.
func (b *Bridge) Latest() (Command, bool) { return b.latest, b.hasCommand }

// Poll runs one bridge exchange if the poll window is open: it collects a
// finished dial, sends the observation and drains whatever command bytes
// have arrived. Outside the window it only returns the latest command.
func (b *Bridge) Poll(self world.Self, terrain world.Terrain) (Command, bool) {
	if !b.limiter.AllowN(b.clock.Now(), 1) {
		return b.latest, b.hasCommand
	}

	b.collectDial()
	if b.conn == nil {
		b.startDial()
		return b.latest, b.hasCommand
	}

	obs := Observe(terrain, self.Pos)
	b.tx = obs.AppendBinary(b.tx[:0])
	if err := b.send(b.tx); err != nil {
		b.teardown("send", err)
		return b.latest, b.hasCommand
	}
	if err := b.receive(); err != nil {
		b.teardown("recv", err)
	}
	return b.latest, b.hasCommand
}

// Apply polls and, when a command is active, writes it into cmd.
func (b *Bridge) Apply(cmd *input.Command, self world.Self, terrain world.Terrain) bool {
	c, ok := b.Poll(self, terrain)
	if !ok {
		return false
	}
	c.Apply(cmd)
	return true
}

func (b *Bridge) startDial() {
	if b.dialing {
		return
	}
	b.dialing = true
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ctx, cancel := context.WithTimeout(b.ctx, b.cfg.DialTimeout)
		defer cancel()
		conn, err := b.dialer.DialContext(ctx, "tcp", b.cfg.Address)
		b.dialCh <- dialResult{conn: conn, err: err}
	}()
}

func (b *Bridge) collectDial() {
	select {
	case res := <-b.dialCh:
		b.dialing = false
		if res.err != nil {
			metrics.RecordBridgeError("dial")
			b.log.Debug("bridge dial failed", zap.Error(res.err))
			return
		}
		b.conn = res.conn
		b.rx = b.rx[:0]
		metrics.SetBridgeConnected(true)
		b.log.Info("bridge connected")
	default:
	}
}

func (b *Bridge) send(p []byte) error {
	if err := b.conn.SetWriteDeadline(time.Now().Add(b.cfg.IOTimeout)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if _, err := b.conn.Write(p); err != nil {
		return fmt.Errorf("write observation: %w", err)
	}
	return nil
}

// receive drains available bytes and keeps the newest complete command.
// A read timeout just means nothing arrived yet.
func (b *Bridge) receive() error {
	if err := b.conn.SetReadDeadline(time.Now().Add(b.cfg.IOTimeout)); err != nil {
		return fmt.Errorf("set read deadline: %w", err)
	}
	for {
		n, err := b.conn.Read(b.scratch[:])
		b.rx = append(b.rx, b.scratch[:n]...)
		if err != nil {
			b.consume()
			if errors.Is(err, os.ErrDeadlineExceeded) {
				return nil
			}
			return fmt.Errorf("read command: %w", err)
		}
		if n < len(b.scratch) {
			b.consume()
			return nil
		}
	}
}

// consume decodes every complete command in rx and keeps the partial tail.
func (b *Bridge) consume() {
	off := 0
	for len(b.rx)-off >= CommandSize {
		b.latest, _ = DecodeCommand(b.rx[off:])
		b.hasCommand = true
		off += CommandSize
	}
	b.rx = b.rx[:copy(b.rx, b.rx[off:])]
}

// teardown drops the socket and the override. The next poll window redials.
func (b *Bridge) teardown(op string, err error) {
	metrics.RecordBridgeError(op)
	metrics.SetBridgeConnected(false)
	b.log.Warn("bridge disconnected", zap.String("op", op), zap.Error(err))
	b.conn.Close()
	b.conn = nil
	b.rx = b.rx[:0]
	b.latest = Command{}
	b.hasCommand = false
}

// Close stops any in-flight dial and closes the socket.
func (b *Bridge) Close() error {
	b.cancel()
	b.wg.Wait()
	select {
	case res := <-b.dialCh:
		if res.conn != nil {
			res.conn.Close()
		}
	default:
	}
	b.dialing = false
	if b.conn == nil {
		return nil
	}
	err := b.conn.Close()
	b.conn = nil
	b.hasCommand = false
	metrics.SetBridgeConnected(false)
	return err
}
