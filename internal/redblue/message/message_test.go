package message

import (
	"bytes"
	"net"
	"testing"
)

func TestSendRecv(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()
	ca := NewConn(a)
	cb := NewConn(b)
	defer ca.Close()
	defer cb.Close()

	payload := []byte("hello rank")
	errc := make(chan error, 1)
	go func() { errc <- ca.Send(payload) }()

	got, err := cb.Recv(len(payload))
	if err != nil {
		t.Fatal(err)
	}
	if err := <-errc; err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("got %q want %q", got, payload)
	}
}

func TestSendAsyncPreservesOrder(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()
	ca := NewConn(a)
	cb := NewConn(b)
	defer ca.Close()
	defer cb.Close()

	msg1 := []byte("first!")
	msg2 := []byte("second")

	h1, err := ca.SendAsync(msg1)
	if err != nil {
		t.Fatal(err)
	}
	h2, err := ca.SendAsync(msg2)
	if err != nil {
		t.Fatal(err)
	}

	got1, err := cb.Recv(len(msg1))
	if err != nil {
		t.Fatal(err)
	}
	got2, err := cb.Recv(len(msg2))
	if err != nil {
		t.Fatal(err)
	}
	if err := h1.Wait(); err != nil {
		t.Fatal(err)
	}
	if err := h2.Wait(); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got1, msg1) || !bytes.Equal(got2, msg2) {
		t.Fatalf("order not preserved: got %q, %q", got1, got2)
	}
}

func TestDialAll(t *testing.T) {
	lnB, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer lnB.Close()
	lnA, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer lnA.Close()

	addrs := []string{lnA.Addr().String(), lnB.Addr().String()}

	type result struct {
		net *Network
		err error
	}
	resA := make(chan result, 1)
	resB := make(chan result, 1)
	go func() {
		n, err := DialAll(0, addrs, lnA, 0)
		resA <- result{n, err}
	}()
	go func() {
		n, err := DialAll(1, addrs, lnB, 0)
		resB <- result{n, err}
	}()

	ra := <-resA
	rb := <-resB
	if ra.err != nil {
		t.Fatal(ra.err)
	}
	if rb.err != nil {
		t.Fatal(rb.err)
	}
	defer ra.net.Close()
	defer rb.net.Close()

	peerFromA, err := ra.net.Peer(1)
	if err != nil {
		t.Fatal(err)
	}
	peerFromB, err := rb.net.Peer(0)
	if err != nil {
		t.Fatal(err)
	}

	payload := []byte("ping")
	go peerFromA.Send(payload)
	got, err := peerFromB.Recv(len(payload))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("got %q want %q", got, payload)
	}
}
