package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/ivnvMkhl/icon-offerer-cf/internal/config"
)

// completionStub 兼容 chat-completion 的上游桩
type completionStub struct {
	*httptest.Server

	mu       sync.Mutex
	status   int
	content  string
	calls    int
	lastAuth string
	lastBody map[string]any
}

func newCompletionStub() *completionStub {
	s := &completionStub{
		status:  http.StatusOK,
		content: `{"icon_names":["SearchOutlined","FileSearchOutlined","ZoomInOutlined"]}`,
	}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()

		s.calls++
		s.lastAuth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		s.lastBody = nil
		_ = json.Unmarshal(raw, &s.lastBody)

		w.Header().Set("Content-Type", "application/json")
		if s.status != http.StatusOK {
			w.WriteHeader(s.status)
			_, _ = io.WriteString(w, `{"error":"upstream exploded"}`)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{
				map[string]any{"message": map[string]any{"role": "assistant", "content": s.content}},
			},
		})
	}))
	return s
}

func (s *completionStub) Reply(status int, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	if content != "" {
		s.content = content
	}
}

func (s *completionStub) Last() (auth string, body map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAuth, s.lastBody
}

func (s *completionStub) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// captchaStub SmartCaptcha 校验接口桩
func newCaptchaStub(status string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.PostForm.Get("secret") != "captcha-secret" || r.PostForm.Get("token") == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":  status,
			"host":    "icons.example",
			"message": "",
		})
	}))
}

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: 8080, Mode: "test"},
		AI: config.AIConfig{
			Provider: "http",
			Token:    "tok",
			BaseURL:  baseURL,
			Model:    "deepseek-coder",
		},
		Captcha: config.CaptchaConfig{TestMode: "true"},
		Log:     config.LogConfig{Level: "error"},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

type result struct {
	*httptest.ResponseRecorder
	body map[string]any
}

func do(srv *Server, method, path, body string, headers map[string]string) result {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, req)

	r := result{ResponseRecorder: w}
	_ = json.Unmarshal(w.Body.Bytes(), &r.body)
	return r
}

func mustNew(cfg *config.Config) *Server {
	srv, err := New(context.Background(), cfg)
	So(err, ShouldBeNil)
	return srv
}

var withToken = map[string]string{"Smart-Token": "captcha-token"}

const searchBody = `{"platform":"antd","request":"search"}`

func TestIconPipeline(t *testing.T) {
	Convey("图标查询流水线", t, func() {
		stub := newCompletionStub()
		Reset(stub.Close)

		cfg := testConfig(stub.URL)

		Convey("成功返回图标与元信息", func() {
			srv := mustNew(cfg)
			r := do(srv, http.MethodPost, "/", searchBody, withToken)

			So(r.Code, ShouldEqual, http.StatusOK)
			So(r.Header().Get("Content-Type"), ShouldEqual, "application/json")
			So(r.Header().Get("Access-Control-Allow-Origin"), ShouldEqual, "*")
			So(r.Header().Get("X-Request-Id"), ShouldNotBeEmpty)
			So(r.body["success"], ShouldEqual, true)
			So(r.body["data"], ShouldResemble, map[string]any{
				"icon_names": []any{"SearchOutlined", "FileSearchOutlined", "ZoomInOutlined"},
			})
			So(r.body["meta"], ShouldResemble, map[string]any{
				"platform": "antd",
				"request":  "search",
				"quantity": float64(3),
				"model":    "deepseek-coder",
			})

			auth, sent := stub.Last()
			So(stub.Calls(), ShouldEqual, 1)
			So(auth, ShouldEqual, "Bearer tok")
			So(sent["model"], ShouldEqual, "deepseek-coder")
			So(sent["temperature"], ShouldEqual, 0.1)
			So(sent["max_tokens"], ShouldEqual, float64(60))
		})

		Convey("版本化路径与根路径行为一致", func() {
			srv := mustNew(cfg)
			r := do(srv, http.MethodPost, "/api/v1/icons", searchBody, withToken)
			So(r.Code, ShouldEqual, http.StatusOK)
		})

		Convey("相同请求得到相同结果", func() {
			srv := mustNew(cfg)
			first := do(srv, http.MethodPost, "/", searchBody, withToken)
			second := do(srv, http.MethodPost, "/", searchBody, withToken)
			So(second.Code, ShouldEqual, first.Code)
			So(second.body["data"], ShouldResemble, first.body["data"])
			So(second.body["meta"], ShouldResemble, first.body["meta"])
		})

		Convey("沿用调用方传入的请求 ID", func() {
			srv := mustNew(cfg)
			r := do(srv, http.MethodPost, "/", searchBody, map[string]string{
				"Smart-Token":  "captcha-token",
				"X-Request-Id": "fn-req-42",
			})
			So(r.Header().Get("X-Request-Id"), ShouldEqual, "fn-req-42")
		})

		Convey("预检请求不做任何处理", func() {
			cfg.AI.Token = ""
			srv := mustNew(cfg)
			r := do(srv, http.MethodOptions, "/", "", nil)

			So(r.Code, ShouldEqual, http.StatusOK)
			So(r.body["message"], ShouldEqual, "CORS preflight successful")
			So(r.Header().Get("Access-Control-Allow-Methods"), ShouldEqual, "POST, OPTIONS")
			So(stub.Calls(), ShouldEqual, 0)
		})

		Convey("非 POST 返回 405", func() {
			srv := mustNew(cfg)
			r := do(srv, http.MethodGet, "/", "", nil)

			So(r.Code, ShouldEqual, http.StatusMethodNotAllowed)
			So(r.Header().Get("Allow"), ShouldEqual, "POST")
			So(r.body["error"], ShouldEqual, "Method Not Allowed")
			So(stub.Calls(), ShouldEqual, 0)
		})

		Convey("非标准方法同样返回 405", func() {
			srv := mustNew(cfg)
			for _, path := range []string{"/", "/api/v1/icons"} {
				r := do(srv, "PROPFIND", path, "", nil)

				So(r.Code, ShouldEqual, http.StatusMethodNotAllowed)
				So(r.Header().Get("Allow"), ShouldEqual, "POST")
				So(r.Header().Get("Access-Control-Allow-Origin"), ShouldEqual, "*")
				So(r.body["error"], ShouldEqual, "Method Not Allowed")
			}
			So(do(srv, "PROPFIND", "/elsewhere", "", nil).Code, ShouldEqual, http.StatusNotFound)
			So(stub.Calls(), ShouldEqual, 0)
		})

		Convey("配置闸门", func() {
			Convey("缺少 TOKEN 时先于人机验证返回 500", func() {
				cfg.AI.Token = ""
				cfg.Captcha = config.CaptchaConfig{Secret: "captcha-secret"}
				srv := mustNew(cfg)
				r := do(srv, http.MethodPost, "/", searchBody, nil)

				So(r.Code, ShouldEqual, http.StatusInternalServerError)
				So(r.body["error"], ShouldEqual, "Configuration Error")
				So(r.body["message"], ShouldEqual, "Missing authorization token")
			})

			Convey("缺少 BASE_URL", func() {
				cfg.AI.BaseURL = ""
				srv := mustNew(cfg)
				r := do(srv, http.MethodPost, "/", searchBody, withToken)

				So(r.Code, ShouldEqual, http.StatusInternalServerError)
				So(r.body["message"], ShouldEqual, "Missing base URL")
			})

			Convey("强制模式缺少 CAPTCHA_SECRET", func() {
				cfg.Captcha = config.CaptchaConfig{}
				srv := mustNew(cfg)
				r := do(srv, http.MethodPost, "/", searchBody, withToken)

				So(r.Code, ShouldEqual, http.StatusInternalServerError)
				So(r.body["message"], ShouldEqual, "Missing SmartCaptcha configuration")
			})

			So(stub.Calls(), ShouldEqual, 0)
		})

		Convey("人机验证", func() {
			Convey("测试模式缺少 token 返回 403", func() {
				srv := mustNew(cfg)
				r := do(srv, http.MethodPost, "/", searchBody, nil)

				So(r.Code, ShouldEqual, http.StatusForbidden)
				So(r.body["error"], ShouldEqual, "Missing Token")
			})

			Convey("强制模式通过外部校验", func() {
				captchaSrv := newCaptchaStub("ok")
				defer captchaSrv.Close()

				cfg.Captcha = config.CaptchaConfig{Secret: "captcha-secret", ValidateURL: captchaSrv.URL}
				srv := mustNew(cfg)
				r := do(srv, http.MethodPost, "/", searchBody, withToken)

				So(r.Code, ShouldEqual, http.StatusOK)
				So(stub.Calls(), ShouldEqual, 1)
			})

			Convey("强制模式校验失败返回 403", func() {
				captchaSrv := newCaptchaStub("failed")
				defer captchaSrv.Close()

				cfg.Captcha = config.CaptchaConfig{Secret: "captcha-secret", ValidateURL: captchaSrv.URL}
				srv := mustNew(cfg)
				r := do(srv, http.MethodPost, "/", searchBody, withToken)

				So(r.Code, ShouldEqual, http.StatusForbidden)
				So(r.body["error"], ShouldEqual, "Captcha Validation Failed")
				So(stub.Calls(), ShouldEqual, 0)
			})
		})

		Convey("请求校验", func() {
			srv := mustNew(cfg)

			r := do(srv, http.MethodPost, "/", `{"platform":"antd","request":"`+strings.Repeat("a", 51)+`"}`, withToken)
			So(r.Code, ShouldEqual, http.StatusBadRequest)
			So(r.body["error"], ShouldEqual, "Request Too Long")
			So(r.body["current_length"], ShouldEqual, float64(51))

			r = do(srv, http.MethodPost, "/", `{"platform":"svg","request":"home"}`, withToken)
			So(r.Code, ShouldEqual, http.StatusBadRequest)
			So(r.body["error"], ShouldEqual, "Invalid Platform")
			So(r.body["supported_platforms"], ShouldHaveLength, 11)

			r = do(srv, http.MethodPost, "/", `{"platform":`, withToken)
			So(r.Code, ShouldEqual, http.StatusBadRequest)
			So(r.body["error"], ShouldEqual, "Invalid JSON")

			r = do(srv, http.MethodPost, "/", "", withToken)
			So(r.Code, ShouldEqual, http.StatusBadRequest)
			So(r.body["error"], ShouldEqual, "Bad Request")

			So(stub.Calls(), ShouldEqual, 0)
		})

		Convey("上游与结果错误", func() {
			Convey("上游 500 返回 502 并带原始响应", func() {
				stub.Reply(http.StatusInternalServerError, "")
				srv := mustNew(cfg)
				r := do(srv, http.MethodPost, "/", searchBody, withToken)

				So(r.Code, ShouldEqual, http.StatusBadGateway)
				So(r.body["error"], ShouldEqual, "Processing Error")
				So(r.body["message"], ShouldEqual, "Error processing request")
				So(r.body["details"], ShouldContainSubstring, "AI API returned error: 500 Internal Server Error")
				So(r.body["details"], ShouldContainSubstring, "upstream exploded")
				So(r.body["request_id"], ShouldEqual, r.Header().Get("X-Request-Id"))
				So(r.body["timestamp"], ShouldNotBeEmpty)
			})

			Convey("补全服务不可达返回 400 而不是 502", func() {
				down := httptest.NewServer(http.NotFoundHandler())
				downURL := down.URL
				down.Close()

				cfg.AI.BaseURL = downURL
				srv := mustNew(cfg)
				r := do(srv, http.MethodPost, "/", searchBody, withToken)

				So(r.Code, ShouldEqual, http.StatusBadRequest)
				So(r.body["error"], ShouldEqual, "Processing Error")
				So(r.body["details"], ShouldStartWith, "AI API request failed")
			})

			Convey("内容不是 JSON 返回 400", func() {
				stub.Reply(http.StatusOK, "here are some icons")
				srv := mustNew(cfg)
				r := do(srv, http.MethodPost, "/", searchBody, withToken)

				So(r.Code, ShouldEqual, http.StatusBadRequest)
				So(r.body["details"], ShouldStartWith, "AI returned invalid JSON")
			})

			Convey("数量不符返回 400", func() {
				stub.Reply(http.StatusOK, `{"icon_names":["SearchOutlined","ZoomInOutlined"]}`)
				srv := mustNew(cfg)
				r := do(srv, http.MethodPost, "/", searchBody, withToken)

				So(r.Code, ShouldEqual, http.StatusBadRequest)
				So(r.body["details"], ShouldEqual, "Expected 3 icons, received: 2")
			})

			Convey("指定数量", func() {
				stub.Reply(http.StatusOK, `{"icon_names":["SearchOutlined"]}`)
				srv := mustNew(cfg)
				r := do(srv, http.MethodPost, "/", `{"platform":"antd","request":"search","quantity":1}`, withToken)

				So(r.Code, ShouldEqual, http.StatusOK)
				So(r.body["meta"].(map[string]any)["quantity"], ShouldEqual, float64(1))
				_, sent := stub.Last()
				So(sent["max_tokens"], ShouldEqual, float64(50))
			})
		})
	})
}

func TestOperationalEndpoints(t *testing.T) {
	Convey("运维端点", t, func() {
		cfg := testConfig("http://127.0.0.1:1/unused")

		Convey("健康检查", func() {
			srv := mustNew(cfg)
			r := do(srv, http.MethodGet, "/health", "", nil)
			So(r.Code, ShouldEqual, http.StatusOK)
			So(r.body["status"], ShouldEqual, "ok")
		})

		Convey("就绪检查", func() {
			srv := mustNew(cfg)
			r := do(srv, http.MethodGet, "/ready", "", nil)
			So(r.Code, ShouldEqual, http.StatusOK)
			So(r.body["provider"], ShouldEqual, "http")
			So(r.body["verification"], ShouldEqual, "bypassed")

			cfg.AI.Token = ""
			srv = mustNew(cfg)
			r = do(srv, http.MethodGet, "/ready", "", nil)
			So(r.Code, ShouldEqual, http.StatusServiceUnavailable)
			So(r.body["reason"], ShouldEqual, "Missing authorization token")
		})

		Convey("指标", func() {
			srv := mustNew(cfg)
			_ = do(srv, http.MethodGet, "/health", "", nil)

			r := do(srv, http.MethodGet, "/metrics", "", nil)
			So(r.Code, ShouldEqual, http.StatusOK)
			So(r.Body.String(), ShouldContainSubstring, "icon_offerer_http_requests_total")
		})

		Convey("关闭指标后不挂载", func() {
			cfg.Metrics.Enabled = false
			srv := mustNew(cfg)
			r := do(srv, http.MethodGet, "/metrics", "", nil)
			So(r.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Swagger 按配置挂载", func() {
			srv := mustNew(cfg)
			So(do(srv, http.MethodGet, "/swagger/doc.json", "", nil).Code, ShouldEqual, http.StatusNotFound)

			cfg.Server.Swagger = true
			srv = mustNew(cfg)
			r := do(srv, http.MethodGet, "/swagger/doc.json", "", nil)
			So(r.Code, ShouldEqual, http.StatusOK)
			So(r.Body.String(), ShouldContainSubstring, "/api/v1/icons")
		})

		Convey("未知路径", func() {
			srv := mustNew(cfg)
			r := do(srv, http.MethodGet, "/nope", "", nil)
			So(r.Code, ShouldEqual, http.StatusNotFound)
			So(r.body["error"], ShouldEqual, "Not Found")
		})

		Convey("未知的补全服务", func() {
			cfg.AI.Provider = "carrier-pigeon"
			_, err := New(context.Background(), cfg)
			So(err, ShouldNotBeNil)
		})
	})
}
