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
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"
)

const (
	DefaultTimeout      = 100 * time.Millisecond
	DefaultResyncWindow = 64
	DefaultMaxFrameLen  = 1024
)

// ClientConfig holds the transaction engine settings.
type ClientConfig struct {
	Timeout      time.Duration // Reply deadline per transaction
	ResyncWindow int           // Max bytes discarded while hunting for a header
	MaxFrameLen  int           // Size of the pre-allocated tx/rx buffers
}

// DefaultClientConfig returns the default engine configuration.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:      DefaultTimeout,
		ResyncWindow: DefaultResyncWindow,
		MaxFrameLen:  DefaultMaxFrameLen,
	}
}

// Client runs one transaction at a time over a Transporter. It is not safe
// for concurrent use; callers sharing a bus must serialise access.
type Client struct {
	transport      Transporter
	packager       Packager
	config         ClientConfig
	logger         io.Writer
	metrics        Metrics
	txBuf          []byte
	rxBuf          []byte
	lastMotorError *MotorError
}

var _ DynamixelApi = (*Client)(nil)

// NewClient creates a client speaking version over transport. Zero config
// fields take their defaults.
func NewClient(transport Transporter, version ProtocolVersion, config ClientConfig) (*Client, error) {
	if transport == nil {
		return nil, fmt.Errorf("dynamixel: nil transport")
	}
	packager, err := NewPackager(version)
	if err != nil {
		return nil, err
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.ResyncWindow <= 0 {
		config.ResyncWindow = DefaultResyncWindow
	}
	if config.MaxFrameLen <= 0 {
		config.MaxFrameLen = DefaultMaxFrameLen
	}
	if config.MaxFrameLen < 16 {
		config.MaxFrameLen = 16
	}
	return &Client{
		transport: transport,
		packager:  packager,
		config:    config,
		txBuf:     make([]byte, 0, config.MaxFrameLen),
		rxBuf:     make([]byte, config.MaxFrameLen),
	}, nil
}

func (c *Client) Protocol() ProtocolVersion {
	return c.packager.Version()
}

func (c *Client) SetLogger(logger io.Writer) {
	c.logger = logger
}

func (c *Client) SetMetrics(metrics Metrics) {
	c.metrics = metrics
}

// GetLastMotorError returns the last error field reported by a unit.
func (c *Client) GetLastMotorError() *MotorError {
	return c.lastMotorError
}

func (c *Client) setLastMotorError(err *MotorError) {
	c.lastMotorError = err
	c.logf("WARNING: dynamixel: %v", err)
}

func (c *Client) logf(format string, args ...any) {
	if c.logger != nil {
		fmt.Fprintf(c.logger, format+"\n", args...)
	}
}

// transact sends one instruction and, if expectReply, waits for the matching
// status packet. Returned params alias the receive buffer and are only valid
// until the next transaction.
func (c *Client) transact(id uint8, inst Instruction, params []byte, expectReply bool) (StatusPacket, error) {
	start := time.Now()
	status, err := c.exchange(id, inst, params, expectReply)
	if c.metrics != nil {
		c.metrics.ObserveTransaction(inst, Outcome(err), time.Since(start))
	}
	return status, err
}

func (c *Client) exchange(id uint8, inst Instruction, params []byte, expectReply bool) (StatusPacket, error) {
	frame, err := c.packager.AppendInstruction(c.txBuf[:0], id, inst, params)
	if err != nil {
		return StatusPacket{}, err
	}
	if len(frame) > c.config.MaxFrameLen {
		return StatusPacket{}, fmt.Errorf("dynamixel: %s frame of %d bytes exceeds limit %d", inst, len(frame), c.config.MaxFrameLen)
	}

	if flusher, ok := c.transport.(Flusher); ok {
		if err := flusher.Flush(); err != nil {
			c.logf("ERROR: dynamixel: flush before %s to id %d: %v", inst, id, err)
			return StatusPacket{}, fmt.Errorf("dynamixel: flush failed: %w", err)
		}
	}

	c.logf("DEBUG: dynamixel: sending %s to id %d: % X", inst, id, frame)
	if err := c.transport.WriteRaw(frame); err != nil {
		c.logf("ERROR: dynamixel: write %s to id %d: %v", inst, id, err)
		return StatusPacket{}, fmt.Errorf("dynamixel: write %s to id %d: %w", inst, id, err)
	}
	if !expectReply {
		return StatusPacket{}, nil
	}
	return c.receive(id, time.Now().Add(c.config.Timeout))
}

// receive reads one status packet from id. Leading garbage is skipped one byte
// at a time, up to ResyncWindow bytes.
func (c *Client) receive(id uint8, deadline time.Time) (StatusPacket, error) {
	prefixLen := c.packager.PrefixLen()
	buf := c.rxBuf
	if err := c.transport.ReadExact(buf[:prefixLen], deadline); err != nil {
		return StatusPacket{}, c.readError(id, err)
	}

	discarded := 0
	var total int
	for {
		n, err := c.packager.FrameLen(buf[:prefixLen])
		if err == nil {
			total = n
			break
		}
		discarded++
		if discarded > c.config.ResyncWindow {
			return StatusPacket{}, frameErrorf("no valid header after discarding %d bytes", discarded)
		}
		copy(buf, buf[1:prefixLen])
		if err := c.transport.ReadExact(buf[prefixLen-1:prefixLen], deadline); err != nil {
			return StatusPacket{}, c.readError(id, err)
		}
	}
	if discarded > 0 {
		c.logf("DEBUG: dynamixel: skipped %d bytes of noise before reply from id %d", discarded, id)
	}
	if total > len(buf) {
		return StatusPacket{}, frameErrorf("frame length %d exceeds limit %d", total, len(buf))
	}

	if err := c.transport.ReadExact(buf[prefixLen:total], deadline); err != nil {
		if errors.Is(err, ErrTimeout) {
			return StatusPacket{}, frameErrorf("truncated frame: header announced %d bytes, timed out waiting for the rest", total)
		}
		return StatusPacket{}, c.readError(id, err)
	}
	c.logf("DEBUG: dynamixel: received from id %d: % X", id, buf[:total])

	status, err := c.packager.DecodeStatus(buf[:total])
	if err != nil {
		c.logf("ERROR: dynamixel: bad reply from id %d: %v", id, err)
		return StatusPacket{}, err
	}
	if status.ID != id {
		return status, &UnexpectedIDError{Expected: id, Got: status.ID}
	}
	if status.Error != 0 {
		motorErr := &MotorError{ID: status.ID, Code: status.Error, Protocol: c.packager.Version()}
		c.setLastMotorError(motorErr)
		return status, motorErr
	}
	return status, nil
}

func (c *Client) readError(id uint8, err error) error {
	if errors.Is(err, ErrTimeout) {
		return fmt.Errorf("dynamixel: waiting for reply from id %d: %w", id, err)
	}
	c.logf("ERROR: dynamixel: read from id %d: %v", id, err)
	return fmt.Errorf("dynamixel: read from id %d: %w", id, err)
}

// checkRegister rejects descriptors the wire format cannot carry.
func (c *Client) checkRegister(reg Register) error {
	if !validWidth(reg.Width) {
		return fmt.Errorf("%w: register %q has unsupported width %d", ErrWidthMismatch, reg.Name, reg.Width)
	}
	if c.packager.Version() == ProtocolV1 && reg.End() > 0x100 {
		return fmt.Errorf("%w: register %q at address %d is out of protocol 1.0 range", ErrUnsupported, reg.Name, reg.Address)
	}
	return nil
}

func (c *Client) checkUnicast(id uint8, op string) error {
	if id == BroadcastID {
		return fmt.Errorf("%w: %s", ErrBroadcast, op)
	}
	return nil
}

func (c *Client) checkValue(reg Register, value uint32) error {
	if value > reg.MaxValue() {
		return &WidthMismatchError{Register: reg.Name, Declared: reg.Width, Requested: valueWidth(value)}
	}
	return nil
}

// valueWidth returns the smallest register width that holds value.
func valueWidth(value uint32) int {
	switch {
	case value <= 0xFF:
		return 1
	case value <= 0xFFFF:
		return 2
	}
	return 4
}

// appendAddress appends the start address and byte count in the layout of the
// client's protocol.
func (c *Client) appendAddress(dst []byte, address uint16, length int) []byte {
	if c.packager.Version() == ProtocolV1 {
		return append(dst, byte(address), byte(length))
	}
	dst = binary.LittleEndian.AppendUint16(dst, address)
	return binary.LittleEndian.AppendUint16(dst, uint16(length))
}

// appendWriteAddress appends the start address of a WRITE or REG_WRITE.
func (c *Client) appendWriteAddress(dst []byte, address uint16) []byte {
	if c.packager.Version() == ProtocolV1 {
		return append(dst, byte(address))
	}
	return binary.LittleEndian.AppendUint16(dst, address)
}

// readRaw reads length bytes starting at address. The result aliases the
// receive buffer.
func (c *Client) readRaw(id uint8, address uint16, length int) ([]byte, error) {
	var params [4]byte
	status, err := c.transact(id, InstRead, c.appendAddress(params[:0], address, length), true)
	if err != nil {
		return nil, err
	}
	if len(status.Params) != length {
		return nil, frameErrorf("read of %d bytes from id %d returned %d", length, id, len(status.Params))
	}
	return status.Params, nil
}

// ReadData reads reg from unit id using the register's declared width.
func (c *Client) ReadData(id uint8, reg Register) (uint32, error) {
	if err := c.checkUnicast(id, "read"); err != nil {
		return 0, err
	}
	if err := c.checkRegister(reg); err != nil {
		return 0, err
	}
	data, err := c.readRaw(id, reg.Address, reg.Width)
	if err != nil {
		return 0, fmt.Errorf("dynamixel: read %s from id %d: %w", reg.Name, id, err)
	}
	return decodeValue(data), nil
}

// WriteData writes value into reg. Writes to BroadcastID are not answered and
// return as soon as the frame is sent.
func (c *Client) WriteData(id uint8, reg Register, value uint32) error {
	return c.write(InstWrite, id, reg, value)
}

// RegWrite stages a write that the unit applies on Action.
func (c *Client) RegWrite(id uint8, reg Register, value uint32) error {
	return c.write(InstRegWrite, id, reg, value)
}

func (c *Client) write(inst Instruction, id uint8, reg Register, value uint32) error {
	if err := c.checkRegister(reg); err != nil {
		return err
	}
	if !reg.Writable() {
		return fmt.Errorf("%w: %s", ErrReadOnlyRegister, reg.Name)
	}
	if err := c.checkValue(reg, value); err != nil {
		return err
	}
	var params [6]byte
	payload := c.appendWriteAddress(params[:0], reg.Address)
	payload = appendValue(payload, reg.Width, value)
	if _, err := c.transact(id, inst, payload, id != BroadcastID); err != nil {
		return fmt.Errorf("dynamixel: %s %s to id %d: %w", inst, reg.Name, id, err)
	}
	return nil
}

func (c *Client) readWidth(id uint8, reg Register, width int) (uint32, error) {
	if reg.Width != width {
		return 0, &WidthMismatchError{Register: reg.Name, Declared: reg.Width, Requested: width}
	}
	return c.ReadData(id, reg)
}

func (c *Client) writeWidth(id uint8, reg Register, width int, value uint32) error {
	if reg.Width != width {
		return &WidthMismatchError{Register: reg.Name, Declared: reg.Width, Requested: width}
	}
	return c.WriteData(id, reg, value)
}

func (c *Client) ReadUint8(id uint8, reg Register) (uint8, error) {
	v, err := c.readWidth(id, reg, 1)
	return uint8(v), err
}

func (c *Client) ReadUint16(id uint8, reg Register) (uint16, error) {
	v, err := c.readWidth(id, reg, 2)
	return uint16(v), err
}

func (c *Client) ReadUint32(id uint8, reg Register) (uint32, error) {
	return c.readWidth(id, reg, 4)
}

func (c *Client) WriteUint8(id uint8, reg Register, value uint8) error {
	return c.writeWidth(id, reg, 1, uint32(value))
}

func (c *Client) WriteUint16(id uint8, reg Register, value uint16) error {
	return c.writeWidth(id, reg, 2, uint32(value))
}

func (c *Client) WriteUint32(id uint8, reg Register, value uint32) error {
	return c.writeWidth(id, reg, 4, value)
}

// ReadRegister looks up name in model's control table and reads it.
func (c *Client) ReadRegister(id uint8, model, name string) (uint32, error) {
	reg, err := Lookup(model, name)
	if err != nil {
		return 0, err
	}
	return c.ReadData(id, reg)
}

// WriteRegister looks up name in model's control table and writes it.
func (c *Client) WriteRegister(id uint8, model, name string, value uint32) error {
	reg, err := Lookup(model, name)
	if err != nil {
		return err
	}
	return c.WriteData(id, reg, value)
}

// Ping checks that unit id answers. Protocol 2.0 replies carry the model
// number and firmware version. A unit that answers with its error field set
// is still reported in the returned PingInfo alongside the *MotorError.
func (c *Client) Ping(id uint8) (PingInfo, error) {
	if err := c.checkUnicast(id, "ping"); err != nil {
		return PingInfo{}, err
	}
	info := PingInfo{ID: id}
	status, err := c.transact(id, InstPing, nil, true)
	if err != nil && !errors.Is(err, ErrMotor) {
		return PingInfo{}, fmt.Errorf("dynamixel: ping id %d: %w", id, err)
	}
	if c.packager.Version() == ProtocolV2 && len(status.Params) >= 3 {
		info.Model = binary.LittleEndian.Uint16(status.Params[0:2])
		info.Firmware = status.Params[2]
	}
	return info, err
}

// Scan pings every id in [from, to]. Units that time out are absent; a unit
// reporting a motor error is present. Any other error stops the scan and is
// returned with the units found so far.
func (c *Client) Scan(from, to uint8) ([]PingInfo, error) {
	maxID := MaxIDV2
	if c.packager.Version() == ProtocolV1 {
		maxID = MaxIDV1
	}
	if to > maxID {
		to = maxID
	}
	var found []PingInfo
	for id := int(from); id <= int(to); id++ {
		info, err := c.Ping(uint8(id))
		switch {
		case err == nil, errors.Is(err, ErrMotor):
			c.logf("INFO: dynamixel: found id %d (model %d)", id, info.Model)
			found = append(found, info)
		case errors.Is(err, ErrTimeout):
			continue
		default:
			return found, err
		}
	}
	return found, nil
}

// SyncWrite writes one value per unit into the same register with a single
// broadcast frame. No unit replies.
func (c *Client) SyncWrite(reg Register, values []SyncValue) error {
	if err := c.checkRegister(reg); err != nil {
		return err
	}
	if !reg.Writable() {
		return fmt.Errorf("%w: %s", ErrReadOnlyRegister, reg.Name)
	}
	if len(values) == 0 {
		return fmt.Errorf("dynamixel: sync write of %s with no values", reg.Name)
	}
	payload := make([]byte, 0, 4+len(values)*(1+reg.Width))
	payload = c.appendAddress(payload, reg.Address, reg.Width)
	for _, v := range values {
		if v.ID == BroadcastID {
			return fmt.Errorf("%w: sync write entry", ErrBroadcast)
		}
		if err := c.checkValue(reg, v.Value); err != nil {
			return fmt.Errorf("dynamixel: sync write to id %d: %w", v.ID, err)
		}
		payload = append(payload, v.ID)
		payload = appendValue(payload, reg.Width, v.Value)
	}
	if _, err := c.transact(BroadcastID, InstSyncWrite, payload, false); err != nil {
		return fmt.Errorf("dynamixel: sync write %s: %w", reg.Name, err)
	}
	return nil
}

// SyncRead reads reg from every unit in ids with one broadcast request.
// Units answer in the order given; each gets the full timeout. Per-unit
// failures are recorded in the results, only a failed send is returned as
// an error. Protocol 2.0 only.
func (c *Client) SyncRead(ids []uint8, reg Register) ([]SyncResult, error) {
	if c.packager.Version() != ProtocolV2 {
		return nil, fmt.Errorf("%w: sync read needs protocol 2.0", ErrUnsupported)
	}
	if err := c.checkRegister(reg); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	payload := make([]byte, 0, 4+len(ids))
	payload = c.appendAddress(payload, reg.Address, reg.Width)
	for _, id := range ids {
		if id == BroadcastID {
			return nil, fmt.Errorf("%w: sync read entry", ErrBroadcast)
		}
		payload = append(payload, id)
	}

	start := time.Now()
	if _, err := c.exchange(BroadcastID, InstSyncRead, payload, false); err != nil {
		return nil, fmt.Errorf("dynamixel: sync read %s: %w", reg.Name, err)
	}
	results := make([]SyncResult, len(ids))
	var lastErr error
	for i, id := range ids {
		results[i].ID = id
		status, err := c.receive(id, time.Now().Add(c.config.Timeout))
		if err == nil && len(status.Params) != reg.Width {
			err = frameErrorf("sync read of %d bytes from id %d returned %d", reg.Width, id, len(status.Params))
		}
		if err != nil {
			results[i].Err = err
			lastErr = err
			continue
		}
		results[i].Value = decodeValue(status.Params)
	}
	if c.metrics != nil {
		c.metrics.ObserveTransaction(InstSyncRead, Outcome(lastErr), time.Since(start))
	}
	return results, nil
}

// Action applies writes staged with RegWrite.
func (c *Client) Action(id uint8) error {
	if _, err := c.transact(id, InstAction, nil, id != BroadcastID); err != nil {
		return fmt.Errorf("dynamixel: action on id %d: %w", id, err)
	}
	return nil
}

// Reboot restarts unit id. Protocol 2.0 only.
func (c *Client) Reboot(id uint8) error {
	if c.packager.Version() != ProtocolV2 {
		return fmt.Errorf("%w: reboot needs protocol 2.0", ErrUnsupported)
	}
	if _, err := c.transact(id, InstReboot, nil, id != BroadcastID); err != nil {
		return fmt.Errorf("dynamixel: reboot id %d: %w", id, err)
	}
	return nil
}

// FactoryReset restores unit id to its factory control table. Protocol 2.0
// units are asked to reset every field (0xFF), including ID and baud rate.
func (c *Client) FactoryReset(id uint8) error {
	if err := c.checkUnicast(id, "factory reset"); err != nil {
		return err
	}
	var params []byte
	if c.packager.Version() == ProtocolV2 {
		params = []byte{0xFF}
	}
	if _, err := c.transact(id, InstFactoryReset, params, true); err != nil {
		return fmt.Errorf("dynamixel: factory reset id %d: %w", id, err)
	}
	return nil
}

// ReadGroup reads several registers with a single READ covering all of them.
// Gaps between registers are read and discarded.
func (c *Client) ReadGroup(id uint8, regs []Register) (map[string]uint32, error) {
	if err := c.checkUnicast(id, "group read"); err != nil {
		return nil, err
	}
	group, err := NewRegisterGroup(regs)
	if err != nil {
		return nil, err
	}
	if c.packager.Version() == ProtocolV1 && group.End() > 0x100 {
		return nil, fmt.Errorf("%w: group ending at %d is out of protocol 1.0 range", ErrUnsupported, group.End())
	}
	data, err := c.readRaw(id, group.Start(), group.Len())
	if err != nil {
		return nil, fmt.Errorf("dynamixel: group read from id %d: %w", id, err)
	}
	return group.Decode(data)
}
