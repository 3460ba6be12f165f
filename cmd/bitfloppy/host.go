package main

import (
	"fmt"

	"github.com/valerio-vaccaro/BitFloppy/internal/bridge"
	"github.com/valerio-vaccaro/BitFloppy/internal/config"
	"github.com/valerio-vaccaro/BitFloppy/internal/flash"
	"github.com/valerio-vaccaro/BitFloppy/internal/volume"
)

// hostSession is the host side of the USB cable: the flash image mounted
// through the mass-storage bridge, block by block, never around it.
type hostSession struct {
	medium flash.Medium
	vol    *volume.Volume
}

func openHostSession() (*hostSession, error) {
	medium, err := flash.Open(config.GetFlashImagePath(), config.GetFlashSize(), config.GetBlockSize())
	if err != nil {
		return nil, fmt.Errorf("failed to open flash medium: %w", err)
	}
	msc := bridge.New(medium, bridge.Identity{
		Vendor:   config.GetVendor(),
		Product:  config.GetProduct(),
		Revision: config.GetRevision(),
	})
	vol, err := volume.Mount(bridge.NewHostMedium(msc))
	if err != nil {
		_ = medium.Close()
		return nil, fmt.Errorf("failed to mount volume: %w", err)
	}
	return &hostSession{medium: medium, vol: vol}, nil
}

// discard releases the session without writing anything back.
func (s *hostSession) discard() {
	_ = s.medium.Close()
}

// commit serializes the volume back onto the flash image, then releases it.
func (s *hostSession) commit() error {
	if err := s.vol.Unmount(); err != nil {
		_ = s.medium.Close()
		return fmt.Errorf("failed to write volume back: %w", err)
	}
	return s.medium.Close()
}
