package model

import "errors"

// Common errors used across the application
var (
	// Queue errors
	ErrParticipantNotFound = errors.New("participant not found")
	ErrAlreadyQueued       = errors.New("participant is already queued")
	ErrAlreadyInMatch      = errors.New("participant is already in a match")
	ErrNotQueued           = errors.New("participant is not queued")
	ErrQueueConflict       = errors.New("participant is not available for processing")
	ErrInvalidLane         = errors.New("invalid lane preference")

	// Lifecycle errors
	ErrInvalidState      = errors.New("invalid player state")
	ErrInvalidTransition = errors.New("invalid player state transition")
	ErrStateConflict     = errors.New("player state changed concurrently")

	// Match errors
	ErrMatchNotFound = errors.New("match not found")

	// Ownership errors
	ErrOwnershipActive = errors.New("ownership references an active match")

	// Delivery errors
	ErrChannelMissing = errors.New("participant has no active delivery channel")

	// Cache errors
	ErrNotCached = errors.New("no cached value")

	// Balancing errors
	ErrInvalidBalanceInput = errors.New("balancer needs exactly ten distinct participants")
	ErrBalanceIncomplete   = errors.New("lane assignment left slots empty")
)
