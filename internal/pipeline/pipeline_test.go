package pipeline

import (
	"context"
	"io"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerate(t *testing.T) {
	tests := []struct {
		name      string
		generator func() GenerateFunc[int]
		check     func(items <-chan int, errc <-chan error)
	}{
		{
			name: "generates 10 numbers",
			generator: func() GenerateFunc[int] {
				i := 0
				return func() (int, bool, error) {
					i++
					if i <= 10 {
						return rand.Int(), true, nil
					}
					return 0, false, io.EOF
				}
			},
			check: func(items <-chan int, errc <-chan error) {
				count := 0
				for range items {
					count++
				}
				assert.Equal(t, 10, count)
				assert.Equal(t, io.EOF, <-errc)
			},
		},
		{
			name: "skips items that are not ok",
			generator: func() GenerateFunc[int] {
				i := 0
				return func() (int, bool, error) {
					i++
					if i <= 10 {
						return i, i%2 == 0, nil
					}
					return 0, false, assert.AnError
				}
			},
			check: func(items <-chan int, errc <-chan error) {
				var got []int
				for item := range items {
					got = append(got, item)
				}
				assert.Equal(t, []int{2, 4, 6, 8, 10}, got)
				assert.Equal(t, assert.AnError, <-errc)
			},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			test.check(Generate(context.TODO(), test.generator()))
		})
	}
}

func TestGenerate_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	items, errc := Generate(ctx, func() (int, bool, error) {
		return 1, true, nil
	})
	for range items {
	}
	assert.Equal(t, errGenerateCanceled, <-errc)
}

func TestGroup(t *testing.T) {
	sameNumber := func(item int, group []int) (bool, error) {
		return item == group[0], nil
	}
	tests := []struct {
		name   string
		inc    <-chan int
		belong func() BelongFunc[int]
		check  func(groups <-chan []int, errc <-chan error)
	}{
		{
			name: "group by number",
			inc:  generateInt(t, []int{0, 0, 0, 1, 1, 2}),
			belong: func() BelongFunc[int] {
				return sameNumber
			},
			check: func(groups <-chan []int, errc <-chan error) {
				var got [][]int
				for group := range groups {
					got = append(got, group)
				}
				assert.Equal(t, [][]int{{0, 0, 0}, {1, 1}, {2}}, got)
				assert.Nil(t, <-errc)
			},
		},
		{
			name: "belong returns error - drain happens",
			inc:  generateInt(t, []int{0, 0, 0, 1, 1, 1}),
			belong: func() BelongFunc[int] {
				i := 0
				return func(item int, group []int) (bool, error) {
					if i == 4 {
						return false, assert.AnError
					}
					i++
					return item == group[0], nil
				}
			},
			check: func(groups <-chan []int, errc <-chan error) {
				var lastGroup []int
				for group := range groups {
					lastGroup = group
				}
				assert.Equal(t, []int{1, 1}, lastGroup)
				assert.Equal(t, assert.AnError, <-errc)
			},
		},
		{
			name: "empty input",
			inc:  generateInt(t, nil),
			belong: func() BelongFunc[int] {
				return sameNumber
			},
			check: func(groups <-chan []int, errc <-chan error) {
				count := 0
				for range groups {
					count++
				}
				assert.Equal(t, 0, count)
				assert.Nil(t, <-errc)
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			test.check(Group(context.TODO(), test.inc, test.belong()))
		})
	}
}

func TestSink(t *testing.T) {
	tests := []struct {
		name   string
		inc    <-chan int
		sinker EachFunc[int]
		check  func(err error)
	}{
		{
			name: "runs sink on all items",
			inc:  generateInt(t, []int{1, 2, 3, 4, 5}),
			sinker: func(val int) error {
				return nil
			},
			check: func(err error) {
				assert.Nil(t, err)
			},
		},
		{
			name: "sinker interrupts the sink",
			inc:  generateInt(t, []int{1, 2, 3, 4, 5}),
			sinker: func(val int) error {
				if val > 3 {
					return assert.AnError
				}
				return nil
			},
			check: func(err error) {
				assert.Equal(t, assert.AnError, err)
			},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			test.check(Sink(context.TODO(), test.inc, test.sinker))
		})
	}
}

func TestWorkerPool(t *testing.T) {
	tests := []struct {
		name        string
		concurrency int
		inc         <-chan int
		worker      WorkerFunc[int, int]
		check       func(outc <-chan int, errc <-chan error)
	}{
		{
			name:        "2 multipliers",
			concurrency: 2,
			inc:         generateInt(t, []int{1, 2, 3, 4, 5}),
			worker: func(ctx context.Context, item int, outc chan<- int) error {
				outc <- item * 10
				return nil
			},
			check: func(outc <-chan int, errc <-chan error) {
				var got []int
				for item := range outc {
					got = append(got, item)
				}
				sort.Ints(got)
				assert.Equal(t, []int{10, 20, 30, 40, 50}, got)
				assert.Nil(t, <-errc)
			},
		},
		{
			name:        "2 multipliers, errors skip the item",
			concurrency: 2,
			inc:         generateInt(t, []int{1, 2, 3, 4, 5}),
			worker: func(ctx context.Context, item int, outc chan<- int) error {
				if item > 3 {
					return assert.AnError
				}
				outc <- item * 10
				return nil
			},
			check: func(outc <-chan int, errc <-chan error) {
				total := 0
				for item := range outc {
					total += item
				}
				assert.Equal(t, 60, total)
				assert.Equal(t, assert.AnError, <-errc)
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			test.check(WorkerPool(context.TODO(), test.concurrency, test.inc, test.worker))
		})
	}
}

func TestMergeErrors(t *testing.T) {
	tests := []struct {
		name  string
		errs  []<-chan error
		check func(err <-chan error)
	}{
		{
			name: "3 error channels, one returns io.EOF",
			errs: func() []<-chan error {
				errc1 := make(chan error, 1)
				errc2 := make(chan error, 1)
				errc3 := make(chan error, 1)
				errc2 <- io.EOF
				close(errc1)
				close(errc2)
				close(errc3)
				return []<-chan error{errc1, errc2, errc3}
			}(),
			check: func(errc <-chan error) {
				var got []error
				for err := range errc {
					got = append(got, err)
				}
				assert.Equal(t, []error{io.EOF}, got)
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			test.check(MergeErrors(context.TODO(), test.errs...))
		})
	}
}

func generateInt(t *testing.T, items []int) <-chan int {
	t.Helper()
	i := 0
	outc, _ := Generate(context.TODO(), func() (int, bool, error) {
		if i >= len(items) {
			return 0, false, io.EOF
		}
		ret := items[i]
		i++
		return ret, true, nil
	})
	return outc
}
