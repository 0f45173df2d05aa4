package lifecycle

import (
	"testing"

	"entrade/internal/order"
)

func sampleRecords() []order.Record {
	return []order.Record{
		{ID: 1, OrderType: order.TypeBuy, Status: order.StatusActive},
		{ID: 2, OrderType: order.TypeSell, Status: order.StatusMatched},
		{ID: 3, OrderType: order.TypeBuy, Status: order.StatusCompleted},
		{ID: 4, OrderType: order.TypeSell, Status: order.StatusExpired},
		{ID: 5, OrderType: order.TypeBuy, Status: "completed"}, // 大小写混杂
	}
}

func TestOpenOrdersExcludesCompleted(t *testing.T) {
	visible := OpenOrders(sampleRecords())
	if len(visible) != 3 {
		t.Fatalf("期望 3 条未完成记录, 实际 %d", len(visible))
	}
	for _, rec := range visible {
		if rec.NormalizedStatus() == order.StatusCompleted {
			t.Fatalf("订单视图不应出现 COMPLETED 记录: %+v", rec)
		}
	}
}

func TestCompletedOrdersOnlyCompleted(t *testing.T) {
	done := CompletedOrders(sampleRecords())
	if len(done) != 2 {
		t.Fatalf("期望 2 条完成记录, 实际 %d", len(done))
	}
	for _, rec := range done {
		if rec.NormalizedStatus() != order.StatusCompleted {
			t.Fatalf("完成视图只应包含 COMPLETED: %+v", rec)
		}
	}
}

func TestCanCancelOnlyActive(t *testing.T) {
	for _, rec := range sampleRecords() {
		want := rec.NormalizedStatus() == order.StatusActive
		if CanCancel(rec) != want {
			t.Fatalf("取消资格判断错误: %+v", rec)
		}
	}
}

func TestSummarizeCounts(t *testing.T) {
	summary := Summarize(OpenOrders(sampleRecords()))
	if summary.Total != 3 || summary.Buy != 1 || summary.Sell != 2 {
		t.Fatalf("汇总错误: %+v", summary)
	}

	empty := Summarize(nil)
	if empty.Total != 0 || empty.Buy != 0 || empty.Sell != 0 {
		t.Fatalf("空集合汇总应全为 0: %+v", empty)
	}
}

func TestTransitions(t *testing.T) {
	valid := [][2]order.Status{
		{order.StatusActive, order.StatusMatched},
		{order.StatusActive, order.StatusExpired},
		{order.StatusMatched, order.StatusCompleted},
	}
	for _, tc := range valid {
		if !CanTransition(tc[0], tc[1]) {
			t.Fatalf("%s -> %s 应为合法转移", tc[0], tc[1])
		}
	}

	invalid := [][2]order.Status{
		{order.StatusActive, order.StatusCompleted},
		{order.StatusMatched, order.StatusExpired},
		{order.StatusCompleted, order.StatusActive},
		{order.StatusExpired, order.StatusMatched},
	}
	for _, tc := range invalid {
		if CanTransition(tc[0], tc[1]) {
			t.Fatalf("%s -> %s 不应为合法转移", tc[0], tc[1])
		}
	}

	if !IsTerminal(order.StatusCompleted) || !IsTerminal(order.StatusExpired) {
		t.Fatal("COMPLETED/EXPIRED 应为终态")
	}
	if IsTerminal(order.StatusActive) || IsTerminal(order.StatusMatched) {
		t.Fatal("ACTIVE/MATCHED 不应为终态")
	}
}

func TestStatusLabels(t *testing.T) {
	cases := map[order.Status]string{
		order.StatusActive:    "waiting",
		order.StatusMatched:   "matched",
		order.StatusCompleted: "done",
		order.StatusExpired:   "expired",
		"":                    "-",
		"WEIRD":               "WEIRD",
	}
	for status, want := range cases {
		if got := StatusLabel(status); got != want {
			t.Fatalf("StatusLabel(%q) = %q, 期望 %q", status, got, want)
		}
	}
}
