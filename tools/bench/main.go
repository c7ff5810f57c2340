package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	baseURL      string
	concurrency  int
	perWorker    int
	timeout      time.Duration
	planetPrefix string
)

var rootCmd = &cobra.Command{
	Use:   "bench",
	Short: "concurrent register/login/current benchmark against a running user center",
	Long: `Each worker owns a cookie jar and repeatedly runs register -> login -> current.
Disable rateLimit in the server config first, otherwise most logins are throttled.`,
	Example: `  $ bench -b http://localhost:8080/api/user -c 20 -n 50`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		stats := run(baseURL, concurrency, perWorker)
		stats.Print(cmd.OutOrStdout())
		return nil
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.Flags().StringVarP(&baseURL, "base", "b", "http://localhost:8080/api/user", "user api base url")
	rootCmd.Flags().IntVarP(&concurrency, "concurrency", "c", 5, "number of workers")
	rootCmd.Flags().IntVarP(&perWorker, "requests", "n", 10, "flows per worker")
	rootCmd.Flags().DurationVarP(&timeout, "timeout", "t", 8*time.Second, "http client timeout")
	// 星球编号最多5位，前缀1位 + 计数4位
	rootCmd.Flags().StringVar(&planetPrefix, "planet-prefix", "", "1-char planet code prefix (random when empty)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// envelope 接口统一响应
type envelope struct {
	Code        int             `json:"code"`
	Data        json.RawMessage `json:"data"`
	Description string          `json:"description"`
}

// Stats 每一步的请求统计
type Stats struct {
	mu        sync.Mutex
	steps     map[string]*StepStats
	order     []string
	startedAt time.Time
	took      time.Duration
}

// StepStats 单个接口的统计
type StepStats struct {
	Total   int
	Success int
	Failed  int
	sum     time.Duration
	Max     time.Duration
	Min     time.Duration
	codes   map[int]int
}

func newStats() *Stats {
	return &Stats{steps: make(map[string]*StepStats), startedAt: time.Now()}
}

// Add 记录一次请求；code 为业务码，-1 表示网络错误
func (s *Stats) Add(step string, code int, latency time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.steps[step]
	if !ok {
		st = &StepStats{codes: make(map[int]int)}
		s.steps[step] = st
		s.order = append(s.order, step)
	}
	st.Total++
	st.codes[code]++
	if code != 0 {
		st.Failed++
		return
	}
	st.Success++
	st.sum += latency
	if latency > st.Max {
		st.Max = latency
	}
	if st.Min == 0 || latency < st.Min {
		st.Min = latency
	}
}

// Avg 成功请求的平均延迟
func (st *StepStats) Avg() time.Duration {
	if st.Success == 0 {
		return 0
	}
	return st.sum / time.Duration(st.Success)
}

// Print 输出统计报告
func (s *Stats) Print(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fmt.Fprintln(w, "\n=== 压测结果 ===")
	fmt.Fprintf(w, "耗时: %v\n", s.took)
	var success int
	for _, name := range s.order {
		st := s.steps[name]
		success += st.Success
		fmt.Fprintf(w, "[%s] 总请求: %d 成功: %d 失败: %d | 延迟 平均: %v 最大: %v 最小: %v | 业务码: %v\n",
			name, st.Total, st.Success, st.Failed, st.Avg(), st.Max, st.Min, st.codes)
	}
	if s.took > 0 {
		fmt.Fprintf(w, "QPS: %.2f\n", float64(success)/s.took.Seconds())
	}
}

type worker struct {
	base   string
	client *http.Client
	stats  *Stats
}

func (w *worker) post(step, path string, body interface{}) envelope {
	data, _ := json.Marshal(body)
	return w.do(step, http.MethodPost, path, bytes.NewReader(data))
}

func (w *worker) do(step, method, path string, body *bytes.Reader) envelope {
	var env envelope
	start := time.Now()

	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequest(method, w.base+path, body)
	} else {
		req, err = http.NewRequest(method, w.base+path, nil)
	}
	if err != nil {
		w.stats.Add(step, -1, time.Since(start))
		env.Code = -1
		return env
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		w.stats.Add(step, -1, time.Since(start))
		env.Code = -1
		return env
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		env.Code = -1
	}
	w.stats.Add(step, env.Code, time.Since(start))
	return env
}

var seq atomic.Int64

// flow 注册 -> 登录 -> 获取当前用户
func (w *worker) flow(prefix string) {
	n := seq.Add(1)
	account := "bench_" + uuid.NewString()[:8] + strconv.FormatInt(n, 10)
	planetCode := prefix + strconv.FormatInt(n%10000, 10)
	const pwd = "12345678"

	env := w.post("register", "/register", map[string]string{
		"userAccount":   account,
		"userPassword":  pwd,
		"checkPassword": pwd,
		"planetCode":    planetCode,
	})
	if env.Code != 0 {
		return
	}
	env = w.post("login", "/login", map[string]string{
		"userAccount":  account,
		"userPassword": pwd,
	})
	if env.Code != 0 {
		return
	}
	w.do("current", http.MethodGet, "/current", nil)
}

func run(base string, concurrency, perWorker int) *Stats {
	prefix := planetPrefix
	if prefix == "" {
		prefix = uuid.NewString()[:1]
	}

	fmt.Printf("目标: %s 并发: %d 每协程流程数: %d\n", base, concurrency, perWorker)
	stats := newStats()
	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			jar, _ := cookiejar.New(nil)
			w := &worker{base: base, client: &http.Client{Timeout: timeout, Jar: jar}, stats: stats}
			for j := 0; j < perWorker; j++ {
				w.flow(prefix)
			}
		}()
	}
	wg.Wait()
	stats.took = time.Since(stats.startedAt)
	return stats
}
