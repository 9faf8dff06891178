package services

import "errors"

var (
	errTokenExpired     = errors.New("token expired")
	errTokenExhausted   = errors.New("token max uses reached")
	errStudyMissing     = errors.New("study does not exist")
	errSessionCompleted = errors.New("session already completed")
	errNoActiveSession  = errors.New("no active session for this study (start session first)")
	errNoEligibleSeries = errors.New("no series has at least 2 ready instances")
	errNotEnoughImages  = errors.New("need at least 2 images to generate pairwise tasks")
)
