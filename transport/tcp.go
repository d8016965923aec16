package transport

import (
	"net"
	"sync"

	"github.com/sirupsen/logrus"
)

// TCPServer accepts one rig client at a time and pumps frames between the
// socket and the transport queues. Connection faults are logged and reset
// the experiment; they never terminate the process. The control loop keeps
// ticking in the disconnected state.
type TCPServer struct {
	transport *Transport
	ln        net.Listener
	done      chan struct{}
	wg        sync.WaitGroup
}

func NewTCPServer(addr string, t *Transport) (s *TCPServer, err error) {
	s = &TCPServer{
		transport: t,
		done:      make(chan struct{}),
	}
	s.ln, err = net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	s.wg.Add(1)
	go s.acceptLoop()
	return
}

// Addr returns the bound listen address.
func (s *TCPServer) Addr() net.Addr {
	return s.ln.Addr()
}

// Close stops accepting, drops the active client and joins the pumps.
func (s *TCPServer) Close() {
	close(s.done)
	s.ln.Close()
	s.transport.Reset()
	s.wg.Wait()
}

func (s *TCPServer) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
			}
			logrus.WithError(err).Error("accept failed")
			continue
		}

		logrus.WithField("remote", conn.RemoteAddr()).Info("client connected")
		s.transport.BindConn(conn)
		s.serve(conn)
		logrus.WithField("remote", conn.RemoteAddr()).Info("client disconnected")

		// the session dies with its connection
		s.transport.Reset()
	}
}

// serve runs the read pump inline and the write pump on its own goroutine:
// the network side produces inbound and consumes outbound, never the other
// way around.
func (s *TCPServer) serve(conn net.Conn) {
	closed := make(chan struct{})

	s.wg.Add(1)
	go s.writePump(conn, closed)

	in := s.transport.Inbound()
	for {
		f, err := ReadFrame(conn)
		if err != nil {
			select {
			case <-s.done:
			default:
				logrus.WithError(err).Warn("read failed, dropping client")
			}
			break
		}
		in.Push(f)
	}

	close(closed)
	conn.Close()
}

func (s *TCPServer) writePump(conn net.Conn, closed <-chan struct{}) {
	defer s.wg.Done()

	out := s.transport.Outbound()
	for {
		select {
		case <-closed:
			return
		case <-s.done:
			return
		case <-out.Wake():
			for {
				f, ok := out.Pop()
				if !ok {
					break
				}
				if err := WriteFrame(conn, f); err != nil {
					logrus.WithError(err).Warn("write failed")
					conn.Close()
					return
				}
			}
		}
	}
}
