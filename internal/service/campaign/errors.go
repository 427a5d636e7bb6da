package campaign

import "errors"

// Sentinel errors for the campaign service layer.
var (
	ErrNotFound         = errors.New("campaign not found")
	ErrAlreadySent      = errors.New("campaign already sent")
	ErrTemplateNotFound = errors.New("campaign template not found")
	ErrSendInProgress   = errors.New("campaign send already in progress")
)
