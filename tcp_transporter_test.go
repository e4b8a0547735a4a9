// Copyright (C) 2024  wwhai
//
// This program is free software; you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; either version 2 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License along
// with this program; if not, see <https://www.gnu.org/licenses/>.

package dynamixel

import (
	"errors"
	"io"
	"net"
	"testing"
	"time"
)

// serveBridge accepts one connection on l and forwards frames between it and
// bus, the way a serial-to-Ethernet converter in front of a real bus would.
func serveBridge(t *testing.T, l net.Listener, bus *Emulator) {
	t.Helper()
	p := bus.packager
	go func() {
		conn, err := l.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			frame := make([]byte, p.PrefixLen())
			if _, err := io.ReadFull(conn, frame); err != nil {
				return
			}
			n, err := p.FrameLen(frame)
			if err != nil {
				return
			}
			frame = append(frame, make([]byte, n-len(frame))...)
			if _, err := io.ReadFull(conn, frame[p.PrefixLen():]); err != nil {
				return
			}
			bus.WriteRaw(frame)
			if pending := bus.Pending(); pending > 0 {
				reply := make([]byte, pending)
				bus.ReadExact(reply, time.Now())
				if _, err := conn.Write(reply); err != nil {
					return
				}
			}
		}
	}()
}

func TestTCPTransporter_ThroughBridge(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()

	bus, _ := NewEmulator(ProtocolV2)
	motor := bus.AddMotor(NewEmulatedMotor(1, XM430W350))
	serveBridge(t, l, bus)

	transport, err := DialTCP(l.Addr().String(), time.Second)
	if err != nil {
		t.Fatalf("DialTCP failed: %v", err)
	}
	defer transport.Close()
	client, err := NewClient(transport, ProtocolV2, ClientConfig{Timeout: time.Second})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	info, err := client.Ping(1)
	if err != nil || info.Model != 1020 {
		t.Fatalf("Ping = %+v, %v", info, err)
	}
	goal := mustLookup(t, XM430W350, "goal_position")
	if err := client.WriteData(1, goal, 3000); err != nil {
		t.Fatalf("WriteData failed: %v", err)
	}
	if motor.Peek(goal) != 3000 {
		t.Errorf("goal_position = %d", motor.Peek(goal))
	}
	v, err := client.ReadData(1, goal)
	if err != nil || v != 3000 {
		t.Errorf("ReadData = %d, %v", v, err)
	}
}

func TestTCPTransporter_Timeout(t *testing.T) {
	local, remote := net.Pipe()
	defer remote.Close()
	transport := NewTCPTransporter(local, time.Second)
	defer transport.Close()

	go func() {
		remote.Write([]byte{0xFF, 0xFF})
	}()
	buf := make([]byte, 4)
	err := transport.ReadExact(buf, time.Now().Add(50*time.Millisecond))
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("ReadExact = %v, want ErrTimeout", err)
	}
}

func TestTCPTransporter_Flush(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()

	flushed := make(chan struct{})
	go func() {
		conn, err := l.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		conn.Write([]byte{0xAA, 0xBB})
		<-flushed
		conn.Write([]byte{0x01, 0x02})
		time.Sleep(100 * time.Millisecond)
	}()

	transport, err := DialTCP(l.Addr().String(), time.Second)
	if err != nil {
		t.Fatalf("DialTCP failed: %v", err)
	}
	defer transport.Close()

	// let the stale bytes arrive
	time.Sleep(50 * time.Millisecond)
	if err := transport.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	close(flushed)
	buf := make([]byte, 2)
	if err := transport.ReadExact(buf, time.Now().Add(time.Second)); err != nil {
		t.Fatalf("ReadExact failed: %v", err)
	}
	if buf[0] != 0x01 || buf[1] != 0x02 {
		t.Errorf("ReadExact after Flush = % X, want 01 02", buf)
	}
	if err := transport.Flush(); err != nil {
		t.Errorf("Flush on an idle connection: %v", err)
	}
}

func TestTCPTransporter_Closed(t *testing.T) {
	local, remote := net.Pipe()
	defer remote.Close()
	transport := NewTCPTransporter(local, 0)
	if err := transport.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := transport.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if err := transport.WriteRaw([]byte{1}); err == nil {
		t.Error("WriteRaw on a closed transporter should fail")
	}
	if err := transport.ReadExact(make([]byte, 1), time.Now()); err == nil {
		t.Error("ReadExact on a closed transporter should fail")
	}
	if err := transport.Flush(); err == nil {
		t.Error("Flush on a closed transporter should fail")
	}
}

func TestDialTCP_Refused(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := l.Addr().String()
	l.Close()
	if _, err := DialTCP(addr, 200*time.Millisecond); err == nil {
		t.Error("DialTCP to a closed port should fail")
	}
}
