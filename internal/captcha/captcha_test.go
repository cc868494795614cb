package captcha

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/ivnvMkhl/icon-offerer-cf/internal/config"
	"github.com/ivnvMkhl/icon-offerer-cf/internal/pkg/apperr"
)

func newValidateStub(status int, body string, form *url.Values) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if form != nil {
			_ = r.ParseForm()
			*form = r.PostForm
		}
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
}

func enforced(srv *httptest.Server) *Verifier {
	return NewVerifier(&config.CaptchaConfig{Secret: "captcha-secret", ValidateURL: srv.URL}, srv.Client())
}

func TestVerifier_Bypassed(t *testing.T) {
	Convey("测试模式下只要求 token 非空", t, func() {
		v := NewVerifier(&config.CaptchaConfig{TestMode: "true"}, nil)
		So(v.Mode(), ShouldEqual, config.VerificationBypassed)

		Convey("缺少 token", func() {
			out := v.Verify(context.Background(), "", "")
			So(out.Valid, ShouldBeFalse)
			So(out.Error, ShouldEqual, ErrMissingToken)
			So(apperr.KindOf(out.Err()), ShouldEqual, apperr.KindVerification)
		})

		Convey("任意非空 token 通过", func() {
			out := v.Verify(context.Background(), "anything", "")
			So(out.Valid, ShouldBeTrue)
			So(out.Host, ShouldEqual, "test-mode")
			So(out.Err(), ShouldBeNil)
		})

		Convey("空白 token 也算非空", func() {
			So(v.Verify(context.Background(), "   ", "").Valid, ShouldBeTrue)
		})

		Convey("NODE_ENV=test 同样跳过外部校验", func() {
			v := NewVerifier(&config.CaptchaConfig{NodeEnv: "test"}, nil)
			So(v.Verify(context.Background(), "x", "").Valid, ShouldBeTrue)
		})
	})
}

func TestVerifier_Enforced(t *testing.T) {
	Convey("强制模式调用校验服务", t, func() {
		ctx := context.Background()

		Convey("未配置 secret 为配置错误", func() {
			v := NewVerifier(&config.CaptchaConfig{}, nil)
			out := v.Verify(ctx, "token", "")
			So(out.Error, ShouldEqual, ErrConfiguration)
			So(apperr.KindOf(out.Err()), ShouldEqual, apperr.KindConfiguration)
		})

		Convey("缺少 token", func() {
			srv := newValidateStub(http.StatusOK, `{"status":"ok"}`, nil)
			defer srv.Close()
			So(enforced(srv).Verify(ctx, "", "").Error, ShouldEqual, ErrMissingToken)
		})

		Convey("校验通过并提交表单", func() {
			var form url.Values
			srv := newValidateStub(http.StatusOK, `{"status":"ok","host":"icons.example.com"}`, &form)
			defer srv.Close()

			out := enforced(srv).Verify(ctx, "tok", "203.0.113.7")
			So(out.Valid, ShouldBeTrue)
			So(out.Host, ShouldEqual, "icons.example.com")
			So(out.Message, ShouldEqual, "Token validated successfully")
			So(form.Get("secret"), ShouldEqual, "captcha-secret")
			So(form.Get("token"), ShouldEqual, "tok")
			So(form.Get("ip"), ShouldEqual, "203.0.113.7")
		})

		Convey("未提供 IP 时不提交 ip 字段", func() {
			var form url.Values
			srv := newValidateStub(http.StatusOK, `{"status":"ok"}`, &form)
			defer srv.Close()

			out := enforced(srv).Verify(ctx, "tok", "")
			So(out.Host, ShouldEqual, "unknown")
			_, hasIP := form["ip"]
			So(hasIP, ShouldBeFalse)
		})

		Convey("校验失败", func() {
			srv := newValidateStub(http.StatusOK, `{"status":"failed","message":"Token invalid or expired."}`, nil)
			defer srv.Close()

			out := enforced(srv).Verify(ctx, "tok", "")
			So(out.Valid, ShouldBeFalse)
			So(out.Error, ShouldEqual, ErrValidationFailed)
			So(out.Message, ShouldEqual, "Token invalid or expired.")
			So(out.Details, ShouldEqual, "SmartCaptcha validation returned: failed")
		})

		Convey("校验服务返回非 2xx", func() {
			srv := newValidateStub(http.StatusServiceUnavailable, "", nil)
			defer srv.Close()

			out := enforced(srv).Verify(ctx, "tok", "")
			So(out.Error, ShouldEqual, ErrValidationService)
			So(out.Details, ShouldEqual, "HTTP 503: Service Unavailable")
		})

		Convey("响应无法解析视为网络错误", func() {
			srv := newValidateStub(http.StatusOK, "not json", nil)
			defer srv.Close()

			out := enforced(srv).Verify(ctx, "tok", "")
			So(out.Error, ShouldEqual, ErrNetwork)
		})

		Convey("服务不可达视为网络错误", func() {
			srv := newValidateStub(http.StatusOK, "", nil)
			target := srv.URL
			srv.Close()

			v := NewVerifier(&config.CaptchaConfig{Secret: "s", ValidateURL: target}, nil)
			out := v.Verify(ctx, "tok", "")
			So(out.Error, ShouldEqual, ErrNetwork)
			So(apperr.KindOf(out.Err()), ShouldEqual, apperr.KindVerification)
		})
	})
}

func TestExtract(t *testing.T) {
	Convey("请求信息提取", t, func() {
		Convey("token 头大小写不敏感", func() {
			h := http.Header{}
			h.Set("smart-token", "a")
			So(ExtractToken(h), ShouldEqual, "a")

			h = http.Header{"Smart-Token": []string{"b"}}
			So(ExtractToken(h), ShouldEqual, "b")

			So(ExtractToken(http.Header{}), ShouldEqual, "")

			h = http.Header{"Smart-Token": []string{"   "}}
			So(ExtractToken(h), ShouldEqual, "   ")
		})

		Convey("IP 按优先级提取", func() {
			r := httptest.NewRequest(http.MethodPost, "/", nil)
			r.RemoteAddr = "10.0.0.1:5555"
			So(ExtractIP(r), ShouldEqual, "10.0.0.1")

			r.Header.Set("X-Client-Ip", "198.51.100.3")
			So(ExtractIP(r), ShouldEqual, "198.51.100.3")

			r.Header.Set("X-Real-Ip", "198.51.100.2")
			So(ExtractIP(r), ShouldEqual, "198.51.100.2")

			r.Header.Set("X-Forwarded-For", " 203.0.113.7 , 10.1.1.1")
			So(ExtractIP(r), ShouldEqual, "203.0.113.7")
		})

		Convey("无法解析对端地址时返回空", func() {
			r := httptest.NewRequest(http.MethodPost, "/", nil)
			r.RemoteAddr = ""
			So(ExtractIP(r), ShouldEqual, "")
		})
	})
}
