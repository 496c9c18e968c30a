package bridge

import (
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"inputpipe/internal/world"
)

// Policy decides the reply to one observation. Returning false sends nothing.
type Policy func(obs Observation, elapsed time.Duration) (Command, bool)

// Alternating moves right for one interval, then left for the next. A
// non-positive interval uses two seconds.
func Alternating(interval time.Duration) Policy {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return func(_ Observation, elapsed time.Duration) (Command, bool) {
		if (elapsed/interval)%2 == 0 {
			return Command{Move: 1}, true
		}
		return Command{Move: -1}, true
	}
}

// Fixed always replies with c.
func Fixed(c Command) Policy {
	return func(Observation, time.Duration) (Command, bool) { return c, true }
}

// Peer is a reference external controller: it accepts bridge connections and
// answers every observation according to its policy.
type Peer struct {
	addr     string
	listener net.Listener
	policy   Policy
	clock    world.Clock
	started  time.Time
	log      *zap.Logger

	clients   map[net.Conn]struct{}
	clientsMu sync.Mutex

	// Stats
	observations atomic.Int64
	last         atomic.Pointer[Observation]

	// Control
	running atomic.Bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewPeer creates a peer that will listen on addr ("127.0.0.1:0" picks a port).
func NewPeer(addr string, policy Policy, clock world.Clock, log *zap.Logger) *Peer {
	if clock == nil {
		clock = world.SystemClock{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Peer{
		addr:    addr,
		policy:  policy,
		clock:   clock,
		log:     log,
		clients: make(map[net.Conn]struct{}),
		stopCh:  make(chan struct{}),
	}
}

// Start opens the listener and begins accepting.
func (p *Peer) Start() error {
	if !p.running.CompareAndSwap(false, true) {
		return nil
	}
	ln, err := net.Listen("tcp", p.addr)
	if err != nil {
		p.running.Store(false)
		return err
	}
	p.listener = ln
	p.started = p.clock.Now()

	p.wg.Add(1)
	go p.acceptLoop()

	p.log.Info("bridge peer listening", zap.String("addr", ln.Addr().String()))
	return nil
}

// Addr is the bound listen address. Valid after Start.
func (p *Peer) Addr() string {
	if p.listener == nil {
		return p.addr
	}
	return p.listener.Addr().String()
}

// Observations returns how many observations were received.
func (p *Peer) Observations() int64 { return p.observations.Load() }

// Last returns the most recent observation.
func (p *Peer) Last() (Observation, bool) {
	o := p.last.Load()
	if o == nil {
		return Observation{}, false
	}
	return *o, true
}

// DropClients closes every connected client without stopping the listener.
func (p *Peer) DropClients() {
	p.clientsMu.Lock()
	for conn := range p.clients {
		conn.Close()
	}
	p.clientsMu.Unlock()
}

// Stop closes the listener and all clients and waits for handlers to exit.
func (p *Peer) Stop() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	close(p.stopCh)
	p.listener.Close()
	p.DropClients()
	p.wg.Wait()
	p.log.Info("bridge peer stopped")
}

func (p *Peer) acceptLoop() {
	defer p.wg.Done()
	for {
		conn, err := p.listener.Accept()
		if err != nil {
			select {
			case <-p.stopCh:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			p.log.Warn("bridge peer accept error", zap.Error(err))
			continue
		}

		p.clientsMu.Lock()
		select {
		case <-p.stopCh:
			p.clientsMu.Unlock()
			conn.Close()
			return
		default:
		}
		p.clients[conn] = struct{}{}
		p.clientsMu.Unlock()

		p.wg.Add(1)
		go p.handle(conn)
	}
}

func (p *Peer) handle(conn net.Conn) {
	defer p.wg.Done()
	defer func() {
		p.clientsMu.Lock()
		delete(p.clients, conn)
		p.clientsMu.Unlock()
		conn.Close()
	}()
	p.log.Info("bridge client connected", zap.String("remote", conn.RemoteAddr().String()))

	buf := make([]byte, ObservationSize)
	out := make([]byte, 0, CommandSize)
	for {
		if _, err := io.ReadFull(conn, buf); err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				p.log.Debug("bridge client read", zap.Error(err))
			}
			return
		}
		obs, _ := DecodeObservation(buf)
		p.observations.Add(1)
		p.last.Store(&obs)

		cmd, ok := p.policy(obs, p.clock.Now().Sub(p.started))
		if !ok {
			continue
		}
		if _, err := conn.Write(cmd.AppendBinary(out[:0])); err != nil {
			p.log.Debug("bridge client write", zap.Error(err))
			return
		}
	}
}
