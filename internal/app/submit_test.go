package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"entrade/internal/config"
	"entrade/internal/order"
)

func testApp(baseURL string) *App {
	cfg := &config.Config{}
	cfg.API.BaseURL = baseURL
	cfg.API.RequestTimeout = time.Second
	cfg.Session.Token = "test-token"
	cfg.Negotiate.Debounce = time.Millisecond
	cfg.Negotiate.RequestTimeout = time.Second
	return NewApp(cfg, zerolog.Nop())
}

func TestSubmitMissingFieldsSkipsNetwork(t *testing.T) {
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := testApp(srv.URL).Submit(context.Background(), SubmitOptions{
		OrderType: order.TypeBuy,
		Price:     "150",
		StartTime: "2026-01-27T10:00",
		EndTime:   "2026-01-27T22:30",
	})
	if !errors.Is(err, order.ErrMissingFields) {
		t.Fatalf("缺字段应返回 ErrMissingFields, 实际 %v", err)
	}
	if atomic.LoadInt64(&hits) != 0 {
		t.Fatalf("校验失败时不应发任何请求, 实际 %d 次", hits)
	}
}

func TestSubmitEndToEndAutofill(t *testing.T) {
	var posted map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/orders/min-end-time":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"minEndTime":"2026-01-27T22:30:00"}`))
		case "/orders":
			_ = json.NewDecoder(r.Body).Decode(&posted)
			w.WriteHeader(http.StatusOK)
		default:
			t.Fatalf("意外的路径: %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	// endTime 留空: 应由协商 floor 自动填充
	err := testApp(srv.URL).Submit(context.Background(), SubmitOptions{
		OrderType: order.TypeSell,
		AmountKwh: "50",
		Price:     "150",
		StartTime: "2026-01-27T10:00",
	})
	if err != nil {
		t.Fatalf("提交应成功: %v", err)
	}

	if posted["startTime"] != "2026-01-27T10:00:00" {
		t.Fatalf("startTime 错误: %v", posted["startTime"])
	}
	if posted["endTime"] != "2026-01-27T22:30:00" {
		t.Fatalf("endTime 应为协商 floor, 实际 %v", posted["endTime"])
	}
}

func TestSubmitRejectsEndBelowNegotiatedFloor(t *testing.T) {
	var orderPosts int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/orders/min-end-time":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"minEndTime":"2026-01-27T22:30:00"}`))
		case "/orders":
			atomic.AddInt64(&orderPosts, 1)
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	// 低于 floor 的 endTime 会被推进到 floor 后提交, 不应被拒绝
	err := testApp(srv.URL).Submit(context.Background(), SubmitOptions{
		OrderType: order.TypeSell,
		AmountKwh: "50",
		Price:     "150",
		StartTime: "2026-01-27T10:00",
		EndTime:   "2026-01-27T12:00",
	})
	if err != nil {
		t.Fatalf("endTime 应被自动推进而非失败: %v", err)
	}
	if atomic.LoadInt64(&orderPosts) != 1 {
		t.Fatalf("应提交一次, 实际 %d", orderPosts)
	}
}

func TestApplyWeights(t *testing.T) {
	draft := order.NewDraft(order.TypeBuy)
	err := applyWeights(&draft, SubmitOptions{
		Preset:      "near",
		WeightEdits: []string{"trust=0.5"},
	})
	if err != nil {
		t.Fatal(err)
	}
	// near {0.3,0.6,0.1} 之后 trust=0.5: sum=1.4
	if diff := draft.Weights.Trust - 0.5/1.4; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("权重编辑应按序归一化, 实际 %+v", draft.Weights)
	}

	if err := applyWeights(&draft, SubmitOptions{WeightEdits: []string{"trust"}}); err == nil {
		t.Fatal("缺少 = 的编辑应报错")
	}
	if err := applyWeights(&draft, SubmitOptions{WeightEdits: []string{"trust=a"}}); err == nil {
		t.Fatal("非数字权重应报错")
	}
	if err := applyWeights(&draft, SubmitOptions{Preset: "fast"}); err == nil {
		t.Fatal("未知预设应报错")
	}
}
