package negotiate

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type funcResolver func(ctx context.Context, start time.Time, amount decimal.Decimal) (time.Time, error)

func (f funcResolver) MinEndTime(ctx context.Context, start time.Time, amount decimal.Decimal) (time.Time, error) {
	return f(ctx, start, amount)
}

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func fixedFloor(floor time.Time) funcResolver {
	return func(context.Context, time.Time, decimal.Decimal) (time.Time, error) {
		return floor, nil
	}
}

func waitResult(t *testing.T, ch <-chan Result) Result {
	t.Helper()
	select {
	case res := <-ch:
		return res
	case <-time.After(2 * time.Second):
		t.Fatal("等待协商结果超时")
		return Result{}
	}
}

func TestDebounceCoalescesEdits(t *testing.T) {
	var calls int64
	floor := time.Date(2026, 1, 27, 22, 30, 0, 0, time.UTC)
	resolver := funcResolver(func(context.Context, time.Time, decimal.Decimal) (time.Time, error) {
		atomic.AddInt64(&calls, 1)
		return floor, nil
	})

	n := New(resolver, Options{Debounce: 30 * time.Millisecond}, noopLogger())
	results := make(chan Result, 1)
	n.OnFloor = func(res Result) { results <- res }

	// 连续编辑只应触发一次请求
	n.Update("2026-01-27T10:00", "5")
	n.Update("2026-01-27T10:00", "50")
	n.Update("2026-01-27T10:00", "500")
	n.Update("2026-01-27T10:00", "50")

	res := waitResult(t, results)
	if got := atomic.LoadInt64(&calls); got != 1 {
		t.Fatalf("防抖后应只发一次请求, 实际 %d", got)
	}
	if !res.Floor.Equal(floor) {
		t.Fatalf("floor 应为 %v, 实际 %v", floor, res.Floor)
	}
}

func TestAutoFillEmptyEndTime(t *testing.T) {
	floor := time.Date(2026, 1, 27, 22, 30, 0, 0, time.UTC)
	n := New(fixedFloor(floor), Options{Debounce: time.Millisecond}, noopLogger())

	res, err := n.ResolveNow(context.Background(), "2026-01-27T10:00", "50")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Corrected {
		t.Fatal("空 endTime 应被自动填充")
	}
	if res.EndTime != "2026-01-27T22:30" {
		t.Fatalf("endTime 应为分钟精度 floor, 实际 %q", res.EndTime)
	}
	if n.EndTime() != "2026-01-27T22:30" {
		t.Fatalf("字段值应同步, 实际 %q", n.EndTime())
	}
}

func TestFloorTruncatedToMinute(t *testing.T) {
	n := New(fixedFloor(time.Date(2026, 1, 27, 22, 30, 45, 0, time.UTC)), Options{}, noopLogger())

	res, err := n.ResolveNow(context.Background(), "2026-01-27T10:00", "50")
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2026, 1, 27, 22, 30, 0, 0, time.UTC)
	if !res.Floor.Equal(want) {
		t.Fatalf("floor 应截断到分钟: %v", res.Floor)
	}
}

func TestEndTimeBelowFloorAdvanced(t *testing.T) {
	floor := time.Date(2026, 1, 27, 22, 30, 0, 0, time.UTC)
	n := New(fixedFloor(floor), Options{}, noopLogger())

	if _, err := n.SetEndTime("2026-01-27T12:00"); err != nil {
		t.Fatalf("尚无 floor 时任何 endTime 都应接受: %v", err)
	}

	res, err := n.ResolveNow(context.Background(), "2026-01-27T10:00", "50")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Corrected || res.EndTime != "2026-01-27T22:30" {
		t.Fatalf("低于 floor 的 endTime 应被推进, 实际 %+v", res)
	}
}

func TestEndTimeEditBelowFloorRejected(t *testing.T) {
	floor := time.Date(2026, 1, 27, 22, 30, 0, 0, time.UTC)
	n := New(fixedFloor(floor), Options{}, noopLogger())
	if _, err := n.ResolveNow(context.Background(), "2026-01-27T10:00", "50"); err != nil {
		t.Fatal(err)
	}

	value, err := n.SetEndTime("2026-01-27T12:00")
	if err == nil {
		t.Fatal("低于 floor 的编辑应被拒绝")
	}
	if value != "2026-01-27T22:30" {
		t.Fatalf("字段应回弹到 floor, 实际 %q", value)
	}
	if !strings.Contains(err.Error(), "2026-01-27 22:30") {
		t.Fatalf("错误信息应包含格式化的 floor, 实际 %q", err)
	}

	// floor 及之后的值应被接受
	if _, err := n.SetEndTime("2026-01-27T23:00"); err != nil {
		t.Fatalf("floor 之后的编辑应被接受: %v", err)
	}
}

func TestPreconditionFailureClearsFloor(t *testing.T) {
	floor := time.Date(2026, 1, 27, 22, 30, 0, 0, time.UTC)
	var calls int64
	resolver := funcResolver(func(context.Context, time.Time, decimal.Decimal) (time.Time, error) {
		atomic.AddInt64(&calls, 1)
		return floor, nil
	})
	n := New(resolver, Options{Debounce: 5 * time.Millisecond}, noopLogger())

	if _, err := n.ResolveNow(context.Background(), "2026-01-27T10:00", "50"); err != nil {
		t.Fatal(err)
	}
	if _, ok := n.Floor(); !ok {
		t.Fatal("floor 应已建立")
	}

	before := atomic.LoadInt64(&calls)
	for _, tc := range [][2]string{
		{"", "50"},
		{"2026-01-27T10:00", ""},
		{"2026-01-27T10:00", "0"},
		{"2026-01-27T10:00", "-3"},
		{"2026-01-27T10:00", "abc"},
	} {
		n.Update(tc[0], tc[1])
		if _, ok := n.Floor(); ok {
			t.Fatalf("前置条件不满足时 floor 应被清除: %v", tc)
		}
	}

	time.Sleep(50 * time.Millisecond)
	if got := atomic.LoadInt64(&calls); got != before {
		t.Fatalf("前置条件不满足时不应发请求, 新增 %d 次", got-before)
	}
}

func TestLookupErrorClearsFloorWithoutCorrection(t *testing.T) {
	lookupErr := errors.New("minimum window unavailable")
	calls := 0
	resolver := funcResolver(func(context.Context, time.Time, decimal.Decimal) (time.Time, error) {
		calls++
		if calls == 1 {
			return time.Date(2026, 1, 27, 22, 30, 0, 0, time.UTC), nil
		}
		return time.Time{}, lookupErr
	})

	n := New(resolver, Options{}, noopLogger())
	errs := make(chan error, 1)
	n.OnError = func(err error) { errs <- err }

	if _, err := n.ResolveNow(context.Background(), "2026-01-27T10:00", "50"); err != nil {
		t.Fatal(err)
	}
	endBefore := n.EndTime()

	if _, err := n.ResolveNow(context.Background(), "2026-01-27T10:00", "500"); err == nil {
		t.Fatal("查询失败应向调用方返回错误")
	}

	select {
	case err := <-errs:
		if !errors.Is(err, lookupErr) {
			t.Fatalf("OnError 应收到原始错误, 实际 %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("OnError 未被调用")
	}

	if _, ok := n.Floor(); ok {
		t.Fatal("失败后 floor 应被清除")
	}
	if n.EndTime() != endBefore {
		t.Fatal("失败后不应修改 endTime")
	}
}

func TestStaleResponseDiscarded(t *testing.T) {
	slowFloor := time.Date(2026, 1, 27, 20, 0, 0, 0, time.UTC)
	fastFloor := time.Date(2026, 1, 27, 23, 0, 0, 0, time.UTC)

	release := make(chan struct{})
	var call int64
	resolver := funcResolver(func(context.Context, time.Time, decimal.Decimal) (time.Time, error) {
		if atomic.AddInt64(&call, 1) == 1 {
			<-release // 第一个请求被拖慢
			return slowFloor, nil
		}
		return fastFloor, nil
	})

	n := New(resolver, Options{Debounce: 5 * time.Millisecond}, noopLogger())
	results := make(chan Result, 2)
	n.OnFloor = func(res Result) { results <- res }

	n.Update("2026-01-27T10:00", "10")
	// 等第一个请求真正发出再触发第二次编辑
	for atomic.LoadInt64(&call) == 0 {
		time.Sleep(time.Millisecond)
	}
	n.Update("2026-01-27T10:00", "100")

	res := waitResult(t, results)
	if !res.Floor.Equal(fastFloor) {
		t.Fatalf("应先应用较新请求的结果, 实际 %v", res.Floor)
	}

	// 放行过期响应, 它必须被丢弃
	close(release)
	time.Sleep(50 * time.Millisecond)

	floor, ok := n.Floor()
	if !ok || !floor.Equal(fastFloor) {
		t.Fatalf("过期响应不应覆盖较新的 floor, 实际 %v", floor)
	}
	select {
	case res := <-results:
		t.Fatalf("过期响应不应触发回调: %+v", res)
	default:
	}
}

func TestInvalidEditCancelsInFlightLookup(t *testing.T) {
	release := make(chan struct{})
	var calls int64
	resolver := funcResolver(func(context.Context, time.Time, decimal.Decimal) (time.Time, error) {
		atomic.AddInt64(&calls, 1)
		<-release
		return time.Date(2026, 1, 27, 22, 30, 0, 0, time.UTC), nil
	})

	n := New(resolver, Options{Debounce: time.Millisecond}, noopLogger())
	results := make(chan Result, 1)
	n.OnFloor = func(res Result) { results <- res }

	n.Update("2026-01-27T10:00", "50")
	for atomic.LoadInt64(&calls) == 0 {
		time.Sleep(time.Millisecond)
	}

	// 请求在途时清空 amount: 响应返回后不得建立 floor
	n.Update("2026-01-27T10:00", "")
	close(release)
	time.Sleep(50 * time.Millisecond)

	if _, ok := n.Floor(); ok {
		t.Fatal("被无效编辑作废的响应不应建立 floor")
	}
	select {
	case res := <-results:
		t.Fatalf("作废的响应不应触发回调: %+v", res)
	default:
	}
}

func TestExpiredTimerDoesNotOutliveInvalidEdit(t *testing.T) {
	floor := time.Date(2026, 1, 27, 22, 30, 0, 0, time.UTC)
	n := New(fixedFloor(floor), Options{Debounce: time.Millisecond}, noopLogger())

	// 反复制造 "定时器已到期但查询尚未加锁" 与无效编辑交错的窗口
	for i := 0; i < 50; i++ {
		n.Update("2026-01-27T10:00", "50")
		time.Sleep(2 * time.Millisecond)
		n.Update("2026-01-27T10:00", "")
	}
	time.Sleep(50 * time.Millisecond)

	if _, ok := n.Floor(); ok {
		t.Fatal("无效编辑之后到达的查询结果不应建立 floor")
	}
}

func TestClearDropsFloorAndEndTime(t *testing.T) {
	n := New(fixedFloor(time.Date(2026, 1, 27, 22, 30, 0, 0, time.UTC)), Options{}, noopLogger())
	if _, err := n.ResolveNow(context.Background(), "2026-01-27T10:00", "50"); err != nil {
		t.Fatal(err)
	}

	n.Clear()
	if _, ok := n.Floor(); ok {
		t.Fatal("Clear 后 floor 应消失")
	}
	if n.EndTime() != "" {
		t.Fatal("Clear 后 endTime 应清空")
	}
}
