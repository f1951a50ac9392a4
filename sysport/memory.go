package sysport

import (
	"context"
	"encoding/binary"
	"sync"
)

// Memory is the reference Port implementation: flat backing storage plus
// an address-sorted list of memory-mapped Devices, adapted from the
// teacher's mem.Bus (a flat byte-addressed RAM with Read/Write) and
// widened from single-byte NES bus transfers to 64-byte cache-block
// transfers and 1/2/4/8-byte scalar transfers (§6.3).
type Memory struct {
	mu      sync.Mutex
	backing []byte
	devices []Device
	irq     uint64
	probes  chan Probe
}

// NewMemory allocates size bytes of backing storage.
func NewMemory(size uint64) *Memory {
	return &Memory{
		backing: make([]byte, size),
		probes:  make(chan Probe, 8),
	}
}

// AddDevice registers a memory-mapped peripheral. Devices are consulted
// before backing storage for any address within [Base, Base+Size).
func (m *Memory) AddDevice(d Device) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.devices = append(m.devices, d)
}

func (m *Memory) deviceFor(addr uint64) Device {
	for _, d := range m.devices {
		if addr >= d.Base() && addr < d.Base()+d.Size() {
			return d
		}
	}
	return nil
}

// Submit implements Port. Block commands (ReadBlk family, WrVictimBlk,
// CleanVictimBlk) move exactly BlockSize bytes aligned down to a block
// boundary; scalar commands (ReadBytes/ReadLWs/.../WrQWs) move req.Size
// bytes at req.PA.
func (m *Memory) Submit(ctx context.Context, req Request) (Response, error) {
	select {
	case <-ctx.Done():
		return Response{}, ctx.Err()
	default:
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	resp := Response{PA: req.PA, ID: req.ID}

	switch req.Tag {
	case ReadBlk, ReadBlkMod, ReadBlkI, FetchBlk,
		ReadBlkSpec, ReadBlkModSpec, ReadBlkSpecI, FetchBlkSpec,
		ReadBlkVic, ReadBlkModVic, ReadBlkVicI:
		base := req.PA &^ (BlockSize - 1)
		block, err := m.readBlock(base)
		if err != nil {
			return Response{}, err
		}
		resp.DC = ReadData0
		resp.Data = block
		return resp, nil

	case WrVictimBlk, CleanVictimBlk:
		base := req.PA &^ (BlockSize - 1)
		if err := m.writeBlock(base, req.Data); err != nil {
			return Response{}, err
		}
		resp.DC = WriteData0
		return resp, nil

	case ReadBytes, ReadWs, ReadLWs, ReadQWs:
		v, err := m.readScalar(req.PA, req.Size)
		if err != nil {
			return Response{}, err
		}
		binary.LittleEndian.PutUint64(resp.Data[:8], v)
		resp.DC = ReadData0
		return resp, nil

	case WrBytes, WrLWs, WrQWs:
		v := binary.LittleEndian.Uint64(req.Data[:8])
		if err := m.writeScalar(req.PA, req.Size, v); err != nil {
			return Response{}, err
		}
		resp.DC = WriteData0
		return resp, nil

	case MB:
		resp.DC = MBDone
		return resp, nil

	default:
		resp.DC = SysDCNop
		return resp, nil
	}
}

func (m *Memory) readBlock(base uint64) ([BlockSize]byte, error) {
	var out [BlockSize]byte
	if d := m.deviceFor(base); d != nil {
		for i := 0; i < BlockSize; i += 8 {
			v, err := d.Read(base+uint64(i), 8)
			if err != nil {
				return out, err
			}
			binary.LittleEndian.PutUint64(out[i:i+8], v)
		}
		return out, nil
	}
	if base+BlockSize > uint64(len(m.backing)) {
		return out, ErrBadAddress
	}
	copy(out[:], m.backing[base:base+BlockSize])
	return out, nil
}

func (m *Memory) writeBlock(base uint64, data [BlockSize]byte) error {
	if d := m.deviceFor(base); d != nil {
		for i := 0; i < BlockSize; i += 8 {
			if err := d.Write(base+uint64(i), 8, binary.LittleEndian.Uint64(data[i:i+8])); err != nil {
				return err
			}
		}
		return nil
	}
	if base+BlockSize > uint64(len(m.backing)) {
		return ErrBadAddress
	}
	copy(m.backing[base:base+BlockSize], data[:])
	return nil
}

func (m *Memory) readScalar(addr uint64, size int) (uint64, error) {
	if d := m.deviceFor(addr); d != nil {
		return d.Read(addr, size)
	}
	if addr+uint64(size) > uint64(len(m.backing)) {
		return 0, ErrBadAddress
	}
	var buf [8]byte
	copy(buf[:size], m.backing[addr:addr+uint64(size)])
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func (m *Memory) writeScalar(addr uint64, size int, val uint64) error {
	if d := m.deviceFor(addr); d != nil {
		return d.Write(addr, size, val)
	}
	if addr+uint64(size) > uint64(len(m.backing)) {
		return ErrBadAddress
	}
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], val)
	copy(m.backing[addr:addr+uint64(size)], buf[:size])
	return nil
}

// Probes returns the channel unsolicited coherence probes arrive on. The
// in-process Memory port never sends one (single-CPU, no peer cache); a
// future multi-socket system port would send on it from its own goroutine.
func (m *Memory) Probes() <-chan Probe { return m.probes }

// RaiseIRQ ORs bits into the pending interrupt mask under the same lock
// guarding backing storage, so a device Write and the resulting RaiseIRQ
// can never interleave with a concurrent IRQ() read and see a torn update
// (the double-acquire the original firmware's Set_IRQ fell into, §9).
func (m *Memory) RaiseIRQ(bits uint64) {
	m.mu.Lock()
	m.irq |= bits
	m.mu.Unlock()
}

// IRQ returns the currently pending interrupt bits.
func (m *Memory) IRQ() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.irq
}

// ClearIRQ clears the given interrupt bits, called by the Ibox once it has
// taken an interrupt on PAL entry.
func (m *Memory) ClearIRQ(bits uint64) {
	m.mu.Lock()
	m.irq &^= bits
	m.mu.Unlock()
}
