package service

import (
	"context"

	"github.com/louisbranch/classroom.space/internal/services/rooms/domain"
	"golang.org/x/sync/errgroup"
)

// Aggregator composes rooms with their children into read snapshots.
type Aggregator struct {
	*deps
	concurrency int
}

// Snapshot reads the children of room concurrently. Only pending join
// requests are included.
func (a *Aggregator) Snapshot(ctx context.Context, room domain.Room) (domain.RoomView, error) {
	view := domain.RoomView{Room: room}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		members, err := a.store.ListMembers(gctx, room.ID)
		if err != nil {
			return storeError("room", "list members", err)
		}
		view.Members = members
		return nil
	})
	g.Go(func() error {
		pending, err := a.store.ListPendingJoinRequests(gctx, room.ID)
		if err != nil {
			return storeError("room", "list pending join requests", err)
		}
		view.PendingRequests = pending
		return nil
	})
	g.Go(func() error {
		messages, err := a.store.ListMessages(gctx, room.ID, 0)
		if err != nil {
			return storeError("room", "list messages", err)
		}
		view.Messages = messages
		return nil
	})
	g.Go(func() error {
		shares, err := a.store.ListShares(gctx, room.ID)
		if err != nil {
			return storeError("room", "list shares", err)
		}
		view.Shares = shares
		return nil
	})
	g.Go(func() error {
		groups, err := a.store.ListGroups(gctx, room.ID)
		if err != nil {
			return storeError("room", "list groups", err)
		}
		view.Groups = groups
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.RoomView{}, err
	}
	return view, nil
}

// SnapshotAll composes rooms in order, bounding how many rooms are read at
// once.
func (a *Aggregator) SnapshotAll(ctx context.Context, rooms []domain.Room) ([]domain.RoomView, error) {
	views := make([]domain.RoomView, len(rooms))
	g, gctx := errgroup.WithContext(ctx)
	limit := a.concurrency
	if limit <= 0 {
		limit = defaultSnapshotConcurrency
	}
	g.SetLimit(limit)
	for i, room := range rooms {
		g.Go(func() error {
			view, err := a.Snapshot(gctx, room)
			if err != nil {
				return err
			}
			views[i] = view
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return views, nil
}
