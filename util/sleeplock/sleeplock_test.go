// Copyright 2023 The CubeFS Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

package sleeplock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestOwner(t *testing.T) {
	require.Equal(t, NoOwner, Owner(context.Background()))
	require.Equal(t, 3, Owner(WithOwner(context.Background(), 3)))
}

func TestHeldBy(t *testing.T) {
	p1 := WithOwner(context.Background(), 1)
	p2 := WithOwner(context.Background(), 2)
	l := New("inode")
	require.Equal(t, "inode", l.Name())

	require.False(t, l.HeldBy(p1))
	l.Lock(p1)
	require.True(t, l.HeldBy(p1))
	require.False(t, l.HeldBy(p2))
	l.Unlock()
	require.False(t, l.HeldBy(p1))
	l.Lock(p2)
	require.True(t, l.HeldBy(p2))
	l.Unlock()
}

func TestOwnerlessContext(t *testing.T) {
	l := New("inode")
	require.Panics(t, func() { l.Lock(context.Background()) })
	require.False(t, l.HeldBy(context.Background()))

	l.Lock(WithOwner(context.Background(), 1))
	require.False(t, l.HeldBy(context.Background()))
	l.Unlock()
}

func TestWaitersSleepUntilRelease(t *testing.T) {
	var zero Lock
	holder := WithOwner(context.Background(), 1)
	zero.Lock(holder)

	acquired := make(chan struct{})
	go func() {
		zero.Lock(WithOwner(context.Background(), 2))
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("lock acquired while held")
	case <-time.After(20 * time.Millisecond):
	}
	zero.Unlock()
	<-acquired
	require.True(t, zero.HeldBy(WithOwner(context.Background(), 2)))
	zero.Unlock()
}

func TestMutualExclusion(t *testing.T) {
	l := New("counter")
	counter := 0
	var g errgroup.Group
	for i := 1; i <= 8; i++ {
		ctx := WithOwner(context.Background(), i)
		g.Go(func() error {
			for j := 0; j < 1000; j++ {
				l.Lock(ctx)
				counter++
				l.Unlock()
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	require.Equal(t, 8000, counter)
}
