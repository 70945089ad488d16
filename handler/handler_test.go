package handler_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/viper"

	"github.com/penny-vault/fundrec/backtest"
	"github.com/penny-vault/fundrec/data"
	"github.com/penny-vault/fundrec/handler"
	"github.com/penny-vault/fundrec/pgxmockhelper"
	"github.com/penny-vault/fundrec/recommend"
	"github.com/penny-vault/fundrec/router"
)

type fakeQueue struct {
	ids []uuid.UUID
}

func (q *fakeQueue) Publish(ctx context.Context, id uuid.UUID) error {
	q.ids = append(q.ids, id)
	return nil
}

func newApp(h *handler.Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		JSONEncoder: json.Marshal,
		JSONDecoder: json.Unmarshal,
	})
	router.SetupRoutes(app, h)
	return app
}

func request(app *fiber.App, method, path string, body interface{}, headers ...string) (int, []byte, http.Header) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		Expect(err).To(BeNil())
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	for idx := 0; idx+1 < len(headers); idx += 2 {
		req.Header.Set(headers[idx], headers[idx+1])
	}

	resp, err := app.Test(req, -1)
	Expect(err).To(BeNil())
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	Expect(err).To(BeNil())
	return resp.StatusCode, respBody, resp.Header
}

var _ = Describe("Handler", func() {
	var (
		mem   *data.Memory
		queue *fakeQueue
		app   *fiber.App
	)

	BeforeEach(func() {
		viper.Set("simulate.paths", 200)
		viper.Set("simulate.seed", 7)
		mem = pgxmockhelper.MemoryProvider("../testdata")
		queue = &fakeQueue{}

		h, err := handler.New(mem, mem, queue)
		Expect(err).To(BeNil())
		app = newApp(h)
	})

	AfterEach(func() {
		viper.Set("simulate.paths", recommend.DefaultProjectionPaths)
		viper.Set("simulate.seed", 0)
	})

	Context("health", func() {
		It("reports the api is alive", func() {
			status, body, _ := request(app, fiber.MethodGet, "/v1/", nil)
			Expect(status).To(Equal(fiber.StatusOK))

			ping := handler.PingResponse{}
			Expect(json.Unmarshal(body, &ping)).To(Succeed())
			Expect(ping.Status).To(Equal("success"))
		})
	})

	Context("funds", func() {
		It("lists every fund with a content range", func() {
			status, body, headers := request(app, fiber.MethodGet, "/v1/funds", nil)
			Expect(status).To(Equal(fiber.StatusOK))
			Expect(headers.Get(fiber.HeaderContentRange)).To(Equal("items 0-7/8"))

			funds := []*data.Fund{}
			Expect(json.Unmarshal(body, &funds)).To(Succeed())
			Expect(funds).To(HaveLen(8))
			Expect(funds[0].SchemeCode).To(Equal("100001"))
		})

		It("pages with the range header", func() {
			status, body, headers := request(app, fiber.MethodGet, "/v1/funds", nil, fiber.HeaderRange, "items=2-3")
			Expect(status).To(Equal(fiber.StatusOK))
			Expect(headers.Get(fiber.HeaderContentRange)).To(Equal("items 2-3/8"))

			funds := []*data.Fund{}
			Expect(json.Unmarshal(body, &funds)).To(Succeed())
			Expect(funds).To(HaveLen(2))
			Expect(funds[0].SchemeCode).To(Equal("100003"))
		})

		DescribeTable("rejects unsatisfiable ranges",
			func(r string) {
				status, _, _ := request(app, fiber.MethodGet, "/v1/funds", nil, fiber.HeaderRange, r)
				Expect(status).To(Equal(fiber.StatusRequestedRangeNotSatisfiable))
			},
			Entry("end before begin", "items=5-2"),
			Entry("too many items", "items=0-100"),
			Entry("wrong unit", "bytes=0-10"),
			Entry("not a range", "everything"),
		)

		It("reports an empty page past the end", func() {
			status, body, headers := request(app, fiber.MethodGet, "/v1/funds", nil, fiber.HeaderRange, "items=20-30")
			Expect(status).To(Equal(fiber.StatusOK))
			Expect(headers.Get(fiber.HeaderContentRange)).To(Equal("items */8"))
			Expect(string(body)).To(Equal("[]"))
		})

		DescribeTable("filters by query",
			func(query string, expected []string) {
				status, body, _ := request(app, fiber.MethodGet, "/v1/funds?"+query, nil)
				Expect(status).To(Equal(fiber.StatusOK))

				funds := []*data.Fund{}
				Expect(json.Unmarshal(body, &funds)).To(Succeed())
				codes := make([]string, len(funds))
				for idx, f := range funds {
					codes[idx] = f.SchemeCode
				}
				Expect(codes).To(Equal(expected))
			},
			Entry("category", "category=debt", []string{"100002", "100006"}),
			Entry("amc", "amc=hdfc", []string{"100002"}),
			Entry("search", "q=axis", []string{"100001"}),
			Entry("category and amc", "category=equity&amc=sbi", []string{"100004"}),
		)

		It("gets a single fund", func() {
			status, body, _ := request(app, fiber.MethodGet, "/v1/funds/100007", nil)
			Expect(status).To(Equal(fiber.StatusOK))

			f := data.Fund{}
			Expect(json.Unmarshal(body, &f)).To(Succeed())
			Expect(f.AmcName).To(Equal("Quant Mutual Fund"))
		})

		It("returns not found for unknown funds", func() {
			status, _, _ := request(app, fiber.MethodGet, "/v1/funds/999999", nil)
			Expect(status).To(Equal(fiber.StatusNotFound))
		})

		It("returns nav history between dates", func() {
			status, body, _ := request(app, fiber.MethodGet, "/v1/funds/100003/nav?start=2021-01-04&end=2021-01-08", nil)
			Expect(status).To(Equal(fiber.StatusOK))

			points := []data.NavPoint{}
			Expect(json.Unmarshal(body, &points)).To(Succeed())
			Expect(points).To(HaveLen(5))
			Expect(points[0].Nav).To(Equal(52.0))
			Expect(points[4].Nav).To(Equal(52.5351))
		})

		It("rejects malformed dates", func() {
			status, _, _ := request(app, fiber.MethodGet, "/v1/funds/100003/nav?start=01-04-2021", nil)
			Expect(status).To(Equal(fiber.StatusBadRequest))
		})

		It("returns not found for funds without nav history", func() {
			status, _, _ := request(app, fiber.MethodGet, "/v1/funds/100005/nav", nil)
			Expect(status).To(Equal(fiber.StatusNotFound))
		})

		It("computes analytics with and without nav history", func() {
			status, body, _ := request(app, fiber.MethodGet, "/v1/funds/100001/analytics", nil)
			Expect(status).To(Equal(fiber.StatusOK))
			report := map[string]interface{}{}
			Expect(json.Unmarshal(body, &report)).To(Succeed())
			Expect(report["drawdown"]).ToNot(BeNil())

			status, body, _ = request(app, fiber.MethodGet, "/v1/funds/100005/analytics", nil)
			Expect(status).To(Equal(fiber.StatusOK))
			report = map[string]interface{}{}
			Expect(json.Unmarshal(body, &report)).To(Succeed())
			Expect(report["momentum"]).ToNot(BeNil())
		})

		It("counts funds per category", func() {
			status, body, _ := request(app, fiber.MethodGet, "/v1/categories", nil)
			Expect(status).To(Equal(fiber.StatusOK))

			categories := []handler.Category{}
			Expect(json.Unmarshal(body, &categories)).To(Succeed())
			Expect(categories).To(Equal([]handler.Category{
				{Name: "Debt", Count: 2},
				{Name: "Equity", Count: 5},
				{Name: "Hybrid", Count: 1},
			}))
		})
	})

	Context("recommendations", func() {
		It("assesses a risk profile", func() {
			status, body, _ := request(app, fiber.MethodPost, "/v1/risk-profile", map[string]interface{}{
				"age":                30,
				"income":             12,
				"investment_horizon": 10,
				"loss_tolerance":     4,
				"experience":         3,
			})
			Expect(status).To(Equal(fiber.StatusOK))

			profile := map[string]interface{}{}
			Expect(json.Unmarshal(body, &profile)).To(Succeed())
			Expect(profile["profile"]).ToNot(BeEmpty())
		})

		It("rejects an invalid questionnaire", func() {
			status, body, _ := request(app, fiber.MethodPost, "/v1/risk-profile", map[string]interface{}{
				"age":            30,
				"loss_tolerance": 9,
				"experience":     3,
			})
			Expect(status).To(Equal(fiber.StatusBadRequest))
			Expect(string(body)).To(ContainSubstring("loss_tolerance"))
		})

		It("rejects a malformed body", func() {
			req := httptest.NewRequest(fiber.MethodPost, "/v1/recommend", bytes.NewReader([]byte("{")))
			req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
			resp, err := app.Test(req, -1)
			Expect(err).To(BeNil())
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
		})

		It("recommends funds", func() {
			status, body, _ := request(app, fiber.MethodPost, "/v1/recommend", map[string]interface{}{
				"horizon_years": 1,
				"top_k":         3,
			})
			Expect(status).To(Equal(fiber.StatusOK))

			res := map[string]interface{}{}
			Expect(json.Unmarshal(body, &res)).To(Succeed())
			Expect(res["recommendations"]).To(HaveLen(3))
		})

		It("uses the risk profile when one is given", func() {
			status, _, _ := request(app, fiber.MethodPost, "/v1/recommend", map[string]interface{}{
				"profile": map[string]interface{}{
					"age":                55,
					"income":             3,
					"investment_horizon": 1,
					"loss_tolerance":     1,
					"experience":         1,
				},
			})
			Expect(status).To(Equal(fiber.StatusOK))
		})

		It("recommends sip funds", func() {
			status, body, _ := request(app, fiber.MethodPost, "/v1/recommend/sip", map[string]interface{}{
				"monthly_amount": 500,
				"risk_level":     3,
			})
			Expect(status).To(Equal(fiber.StatusOK))

			res := handler.SIPResponse{}
			Expect(json.Unmarshal(body, &res)).To(Succeed())
			Expect(res.Recommendations).ToNot(BeEmpty())
			for _, s := range res.Recommendations {
				Expect(s.Fund.MinSip).To(BeNumerically("<=", 500))
			}
		})

		It("requires a positive monthly amount", func() {
			status, _, _ := request(app, fiber.MethodPost, "/v1/recommend/sip", map[string]interface{}{})
			Expect(status).To(Equal(fiber.StatusBadRequest))
		})

		It("compares funds", func() {
			status, body, _ := request(app, fiber.MethodGet, "/v1/compare?codes=100001,999999,100007", nil)
			Expect(status).To(Equal(fiber.StatusOK))

			res := map[string]interface{}{}
			Expect(json.Unmarshal(body, &res)).To(Succeed())
			Expect(res["funds"]).To(HaveLen(2))
		})

		It("requires codes to compare", func() {
			status, _, _ := request(app, fiber.MethodGet, "/v1/compare", nil)
			Expect(status).To(Equal(fiber.StatusBadRequest))

			status, _, _ = request(app, fiber.MethodGet, "/v1/compare?codes=999999", nil)
			Expect(status).To(Equal(fiber.StatusUnprocessableEntity))
		})
	})

	Context("simulation", func() {
		It("simulates from a scheme's nav history", func() {
			status, body, _ := request(app, fiber.MethodPost, "/v1/simulate", map[string]interface{}{
				"scheme_code": "100001",
				"n_sims":      100,
				"horizon":     10,
				"samples":     3,
			})
			Expect(status).To(Equal(fiber.StatusOK))

			res := handler.SimulateResponse{}
			Expect(json.Unmarshal(body, &res)).To(Succeed())
			Expect(res.Bands).To(HaveLen(3))
			Expect(res.Bands[0].Values).To(HaveLen(10))
			Expect(res.Samples).To(HaveLen(3))
			Expect(res.Expectation.Expected).To(HaveLen(10))
		})

		It("simulates from navs in the request", func() {
			status, body, _ := request(app, fiber.MethodPost, "/v1/simulate", map[string]interface{}{
				"navs":        []float64{10, 10.1, 10.05, 10.2, 10.3},
				"n_sims":      50,
				"horizon":     5,
				"percentiles": []float64{25, 75},
			})
			Expect(status).To(Equal(fiber.StatusOK))

			res := handler.SimulateResponse{}
			Expect(json.Unmarshal(body, &res)).To(Succeed())
			Expect(res.Bands).To(HaveLen(2))
			Expect(res.Params.S0).To(Equal(10.3))
		})

		It("needs a nav source", func() {
			status, _, _ := request(app, fiber.MethodPost, "/v1/simulate", map[string]interface{}{})
			Expect(status).To(Equal(fiber.StatusBadRequest))
		})

		It("needs three navs", func() {
			status, _, _ := request(app, fiber.MethodPost, "/v1/simulate", map[string]interface{}{
				"navs": []float64{10, 11},
			})
			Expect(status).To(Equal(fiber.StatusUnprocessableEntity))
		})

		It("refuses simulations that are too large", func() {
			status, body, _ := request(app, fiber.MethodPost, "/v1/simulate", map[string]interface{}{
				"navs":    []float64{10, 10.1, 10.3, 10.2},
				"n_sims":  100000,
				"horizon": 2520,
			})
			Expect(status).To(Equal(fiber.StatusBadRequest))
			Expect(string(body)).To(ContainSubstring("must not exceed"))

			status, _, _ = request(app, fiber.MethodPost, "/v1/predict", map[string]interface{}{
				"current_nav":   100,
				"annual_return": 12,
				"volatility":    15,
				"days":          2520,
				"n_sims":        100000,
			})
			Expect(status).To(Equal(fiber.StatusBadRequest))

			status, _, _ = request(app, fiber.MethodPost, "/v1/stress-test", map[string]interface{}{
				"current_nav":   100,
				"annual_return": 12,
				"volatility":    15,
				"n_sims":        100000,
			})
			Expect(status).To(Equal(fiber.StatusBadRequest))
		})

		It("predicts with fund metrics when no nav history exists", func() {
			status, body, _ := request(app, fiber.MethodPost, "/v1/predict", map[string]interface{}{
				"scheme_code": "100005",
				"n_sims":      500,
			})
			Expect(status).To(Equal(fiber.StatusOK))

			forecast := map[string]interface{}{}
			Expect(json.Unmarshal(body, &forecast)).To(Succeed())
			Expect(forecast["current_nav"]).To(Equal(100.0))
			Expect(forecast["days"]).To(Equal(252.0))
		})

		It("rejects predictions without a current nav", func() {
			status, _, _ := request(app, fiber.MethodPost, "/v1/predict", map[string]interface{}{
				"annual_return": 12,
				"volatility":    15,
			})
			Expect(status).To(Equal(fiber.StatusBadRequest))
		})

		It("stress tests the default scenarios", func() {
			status, body, _ := request(app, fiber.MethodPost, "/v1/stress-test", map[string]interface{}{
				"current_nav":   100,
				"annual_return": 12,
				"volatility":    15,
				"n_sims":        200,
			})
			Expect(status).To(Equal(fiber.StatusOK))

			res := handler.StressResponse{}
			Expect(json.Unmarshal(body, &res)).To(Succeed())
			Expect(res.Scenarios).To(HaveLen(4))
			Expect(res.Scenarios[0].Scenario).To(Equal("market_crash"))
			Expect(res.Scenarios[0].AnnualReturnPct).To(Equal(-24.0))
		})

		It("prices an option", func() {
			status, body, _ := request(app, fiber.MethodPost, "/v1/blackscholes/greeks", map[string]interface{}{
				"spot":       100,
				"strike":     100,
				"rate":       0.05,
				"volatility": 0.2,
				"time":       1,
			})
			Expect(status).To(Equal(fiber.StatusOK))

			res := handler.GreeksResponse{}
			Expect(json.Unmarshal(body, &res)).To(Succeed())
			Expect(res.Call).To(BeNumerically("~", 10.4506, 1e-4))
			Expect(res.Put).To(BeNumerically("~", 5.5735, 1e-4))
			Expect(res.Greeks.Delta.Call).To(BeNumerically("~", 0.6368, 1e-4))
		})

		It("validates option inputs", func() {
			status, _, _ := request(app, fiber.MethodPost, "/v1/blackscholes/greeks", map[string]interface{}{
				"spot":   100,
				"strike": 100,
			})
			Expect(status).To(Equal(fiber.StatusBadRequest))
		})
	})

	Context("portfolio", func() {
		It("optimizes fund allocations", func() {
			status, body, _ := request(app, fiber.MethodPost, "/v1/portfolio/optimize", map[string]interface{}{
				"scheme_codes": []string{"100001", "100002", "100007"},
				"views":        []map[string]interface{}{{"funds": []int{2}, "return": 0.2}},
			})
			Expect(status).To(Equal(fiber.StatusOK))

			res := map[string]interface{}{}
			Expect(json.Unmarshal(body, &res)).To(Succeed())
			Expect(res["allocations"]).ToNot(BeEmpty())
		})

		It("requires at least two funds to optimize", func() {
			status, _, _ := request(app, fiber.MethodPost, "/v1/portfolio/optimize", map[string]interface{}{
				"scheme_codes": []string{"100001"},
			})
			Expect(status).To(Equal(fiber.StatusBadRequest))
		})

		It("returns not found for unknown funds in an optimization", func() {
			status, _, _ := request(app, fiber.MethodPost, "/v1/portfolio/optimize", map[string]interface{}{
				"scheme_codes": []string{"100001", "999999"},
			})
			Expect(status).To(Equal(fiber.StatusNotFound))
		})

		It("allocates with black-litterman", func() {
			status, body, _ := request(app, fiber.MethodPost, "/v1/portfolio/black-litterman", map[string]interface{}{
				"amount": 50000,
			})
			Expect(status).To(Equal(fiber.StatusOK))

			res := map[string]interface{}{}
			Expect(json.Unmarshal(body, &res)).To(Succeed())
			Expect(res["n_candidates"]).To(Equal(3.0))
			Expect(res["amount"]).To(Equal(50000.0))
		})

		It("balances risk contributions", func() {
			status, body, _ := request(app, fiber.MethodPost, "/v1/portfolio/risk-parity", map[string]interface{}{
				"scheme_codes": []string{"100001", "100003", "100004"},
			})
			Expect(status).To(Equal(fiber.StatusOK))

			res := handler.RiskParityResponse{}
			Expect(json.Unmarshal(body, &res)).To(Succeed())
			Expect(res.SchemeCodes).To(Equal([]string{"100001", "100003", "100004"}))

			total := 0.0
			for _, w := range res.Weights {
				total += w
			}
			Expect(total).To(BeNumerically("~", 1, 1e-3))
		})

		It("measures weighted performance", func() {
			status, body, _ := request(app, fiber.MethodPost, "/v1/portfolio/performance", map[string]interface{}{
				"weights": map[string]float64{"100001": 0.5, "100003": 0.5},
				"start":   "2021-01-04",
				"end":     "2021-01-08",
			})
			Expect(status).To(Equal(fiber.StatusOK))

			res := map[string]interface{}{}
			Expect(json.Unmarshal(body, &res)).To(Succeed())
			Expect(res["portfolio_nav"]).To(HaveLen(4))
		})

		It("rejects malformed performance dates", func() {
			status, _, _ := request(app, fiber.MethodPost, "/v1/portfolio/performance", map[string]interface{}{
				"weights": map[string]float64{"100001": 1},
				"start":   "yesterday",
			})
			Expect(status).To(Equal(fiber.StatusBadRequest))
		})
	})

	Context("backtest", func() {
		It("runs a backtest synchronously", func() {
			status, body, _ := request(app, fiber.MethodPost, "/v1/backtest", map[string]interface{}{})
			Expect(status).To(Equal(fiber.StatusOK))

			res := backtest.Result{}
			Expect(json.Unmarshal(body, &res)).To(Succeed())
			Expect(res.Periods).To(HaveLen(3))
		})

		It("reports when there is not enough history", func() {
			status, _, _ := request(app, fiber.MethodPost, "/v1/backtest", map[string]interface{}{
				"lookback_days": 290,
			})
			Expect(status).To(Equal(fiber.StatusUnprocessableEntity))
		})

		It("queues a backtest and reports its result", func() {
			status, body, _ := request(app, fiber.MethodPost, "/v1/backtest/async", map[string]interface{}{})
			Expect(status).To(Equal(fiber.StatusAccepted))

			queued := handler.BacktestQueued{}
			Expect(json.Unmarshal(body, &queued)).To(Succeed())
			Expect(queued.Status).To(Equal(data.BacktestQueued))
			Expect(queue.ids).To(Equal([]uuid.UUID{queued.ID}))

			status, body, _ = request(app, fiber.MethodGet, "/v1/backtest/"+queued.ID.String(), nil)
			Expect(status).To(Equal(fiber.StatusOK))
			res := map[string]interface{}{}
			Expect(json.Unmarshal(body, &res)).To(Succeed())
			Expect(res["status"]).To(Equal(data.BacktestQueued))
			Expect(res).ToNot(HaveKey("result"))

			Expect(backtest.Execute(context.Background(), mem, mem, queued.ID)).To(Succeed())

			status, body, _ = request(app, fiber.MethodGet, "/v1/backtest/"+queued.ID.String(), nil)
			Expect(status).To(Equal(fiber.StatusOK))
			done := struct {
				Status string           `json:"status"`
				Result *backtest.Result `json:"result"`
			}{}
			Expect(json.Unmarshal(body, &done)).To(Succeed())
			Expect(done.Status).To(Equal(data.BacktestComplete))
			Expect(done.Result.Periods).To(HaveLen(3))
		})

		It("validates backtest ids", func() {
			status, _, _ := request(app, fiber.MethodGet, "/v1/backtest/not-a-uuid", nil)
			Expect(status).To(Equal(fiber.StatusBadRequest))

			status, _, _ = request(app, fiber.MethodGet, "/v1/backtest/"+uuid.New().String(), nil)
			Expect(status).To(Equal(fiber.StatusNotFound))
		})

		It("is unavailable without a store and queue", func() {
			h, err := handler.New(mem, nil, nil)
			Expect(err).To(BeNil())
			bare := newApp(h)

			status, _, _ := request(bare, fiber.MethodPost, "/v1/backtest/async", map[string]interface{}{})
			Expect(status).To(Equal(fiber.StatusServiceUnavailable))

			status, _, _ = request(bare, fiber.MethodGet, "/v1/backtest/"+uuid.New().String(), nil)
			Expect(status).To(Equal(fiber.StatusServiceUnavailable))
		})
	})
})
