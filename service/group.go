// Package service runs the long-lived parts of the PageRank server side by
// side.
package service

import (
	"context"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/xerrors"
)

// Service is a component that runs until its context is cancelled.
type Service interface {
	// Name identifies the service in errors and logs.
	Name() string

	// Run blocks until the context is cancelled or the service fails.
	Run(context.Context) error
}

// Group runs a set of services concurrently. When one of them fails, the
// others are asked to stop.
type Group []Service

// Run starts every service of the group and waits for all of them to return.
// A service that returns an error cancels the context of the remaining
// services while a nil return leaves them running. The returned error
// collects the failures, each prefixed with the service name.
func (g Group) Run(ctx context.Context) error {
	runCtx, cancelFn := context.WithCancel(ctx)
	defer cancelFn()

	resCh := make(chan error, len(g))
	for _, s := range g {
		go func(s Service) {
			err := s.Run(runCtx)
			if err != nil {
				err = xerrors.Errorf("%s: %w", s.Name(), err)
				cancelFn()
			}
			resCh <- err
		}(s)
	}

	var err error
	for range g {
		if svcErr := <-resCh; svcErr != nil {
			err = multierror.Append(err, svcErr)
		}
	}
	return err
}
