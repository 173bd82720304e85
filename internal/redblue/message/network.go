package message

import (
	"io"
	"net"
	"time"

	"github.com/scottgreenup/redblue/internal/redblue/rberrors"
)

// Network is a rank-addressed set of peer connections, established
// once at startup. It mirrors splitter.go's transport(i) lookup
// (one net.Conn per peer address) generalized from "one per query
// split" to "one per process rank" for the lifetime of a run.
type Network struct {
	Rank  uint32
	Addrs []string // Addrs[r] is the dial address of rank r (Addrs[Rank] is this process's own listen address)
	conns map[uint32]Conn
}

// DialAll connects to every rank greater than this one's own rank,
// and accepts inbound connections (via ln) from every rank less than
// it, the way a full point-to-point mesh is normally bootstrapped:
// lower ranks dial higher ranks so every pair agrees on who initiates.
func DialAll(rank uint32, addrs []string, ln net.Listener, dialTimeout time.Duration) (*Network, error) {
	n := &Network{Rank: rank, Addrs: addrs, conns: make(map[uint32]Conn)}
	type accepted struct {
		conn net.Conn
		err  error
	}
	pending := make(chan accepted, len(addrs))
	toAccept := 0
	for r := range addrs {
		if uint32(r) < rank {
			toAccept++
		}
	}
	go func() {
		for i := 0; i < toAccept; i++ {
			c, err := ln.Accept()
			pending <- accepted{c, err}
		}
	}()

	// This process dials every higher rank.
	for r, addr := range addrs {
		if uint32(r) <= rank {
			continue
		}
		conn, err := net.DialTimeout("tcp", addr, dialTimeout)
		if err != nil {
			return nil, rberrors.Transport(err, "dialing rank %d at %s", r, addr)
		}
		if err := sendRank(conn, rank); err != nil {
			return nil, err
		}
		n.conns[uint32(r)] = NewConn(conn)
	}

	// Accept connections from every lower rank; each one announces
	// its rank as the first 4 bytes so we know who dialed us.
	for i := 0; i < toAccept; i++ {
		acc := <-pending
		if acc.err != nil {
			return nil, rberrors.Transport(acc.err, "accepting peer connection")
		}
		peerRank, err := recvRank(acc.conn)
		if err != nil {
			return nil, err
		}
		n.conns[peerRank] = NewConn(acc.conn)
	}
	return n, nil
}

func sendRank(conn net.Conn, rank uint32) error {
	buf := []byte{byte(rank), byte(rank >> 8), byte(rank >> 16), byte(rank >> 24)}
	_, err := conn.Write(buf)
	if err != nil {
		return rberrors.Transport(err, "announcing rank %d", rank)
	}
	return nil
}

func recvRank(conn net.Conn) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(conn, buf[:]); err != nil {
		return 0, rberrors.Transport(err, "reading peer rank announcement")
	}
	return uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 | uint32(buf[3])<<24, nil
}

// NewNetwork wraps a pre-established set of peer connections as a
// Network, for callers (tests, or any mesh bootstrapped some way other
// than DialAll) that already hold a Conn per peer rank.
func NewNetwork(rank uint32, conns map[uint32]Conn) *Network {
	return &Network{Rank: rank, conns: conns}
}

// Peer returns the connection to the given rank.
func (n *Network) Peer(rank uint32) (Conn, error) {
	c, ok := n.conns[rank]
	if !ok {
		return nil, rberrors.Internal("no connection established to rank %d", rank)
	}
	return c, nil
}

// Close closes every peer connection.
func (n *Network) Close() error {
	var first error
	for _, c := range n.conns {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
