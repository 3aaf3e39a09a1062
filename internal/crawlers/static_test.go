package crawlers

import (
	"bytes"
	"compress/gzip"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestStaticCrawler() *StaticCrawler {
	return NewStaticCrawler(StaticCrawlerConfig{
		Timeout:      5 * time.Second,
		ConnectTO:    2 * time.Second,
		TLSTO:        2 * time.Second,
		ReadHeaderTO: 2 * time.Second,
		MaxIdleConns: 8,
		MinHTMLBytes: 50,
	})
}

func TestStaticCrawler_TryVariants(t *testing.T) {
	logoPage := `<html><head><title>Acme</title></head><body>
		<header><img src="/assets/logo.png" alt="Acme logo"></header>
		<p>Welcome to Acme. We sell industrial supplies and equipment.</p>
	</body></html>`
	plainPage := `<html><head><title>Acme</title></head><body>
		<p>Welcome to Acme. We sell industrial supplies and equipment.</p>
		<p>This page renders its branding with JavaScript.</p>
	</body></html>`

	t.Run("静态命中logo", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(logoPage))
		}))
		defer srv.Close()

		sc := newTestStaticCrawler()
		outcome := sc.tryVariants([]string{srv.URL}, "acme.example.org")

		if !outcome.Found {
			t.Fatal("有logo的页面应在静态阶段命中")
		}
		if outcome.NeedsRender {
			t.Error("命中后不应再升级到渲染阶段")
		}
		if outcome.LogoURL != srv.URL+"/assets/logo.png" {
			t.Errorf("LogoURL = %q, 期望 %q", outcome.LogoURL, srv.URL+"/assets/logo.png")
		}
	})

	t.Run("页面可达但无logo升级渲染", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(plainPage))
		}))
		defer srv.Close()

		sc := newTestStaticCrawler()
		outcome := sc.tryVariants([]string{srv.URL}, "acme.example.org")

		if outcome.Found {
			t.Error("无logo页面不应标记为命中")
		}
		if !outcome.NeedsRender {
			t.Error("无logo页面应升级到渲染阶段")
		}
	})

	t.Run("全部变体不可达也升级渲染", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "forbidden", http.StatusForbidden)
		}))
		defer srv.Close()

		sc := newTestStaticCrawler()
		outcome := sc.tryVariants([]string{srv.URL}, "acme.example.org")

		if outcome.Found {
			t.Error("不可达域名不应标记为命中")
		}
		if !outcome.NeedsRender {
			t.Error("不可达域名应交给渲染阶段再试")
		}
	})

	t.Run("响应过短视为不可用", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html></html>"))
		}))
		defer srv.Close()

		sc := newTestStaticCrawler()
		outcome := sc.tryVariants([]string{srv.URL}, "acme.example.org")

		if outcome.Found {
			t.Error("过短响应不应参与提取")
		}
		if !outcome.NeedsRender {
			t.Error("过短响应应升级到渲染阶段")
		}
	})

	t.Run("首个失败变体后尝试下一个", func(t *testing.T) {
		bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "not found", http.StatusNotFound)
		}))
		defer bad.Close()
		good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(logoPage))
		}))
		defer good.Close()

		sc := newTestStaticCrawler()
		outcome := sc.tryVariants([]string{bad.URL, good.URL}, "acme.example.org")

		if !outcome.Found {
			t.Fatal("第二个变体可用时应命中")
		}
		if outcome.LogoURL != good.URL+"/assets/logo.png" {
			t.Errorf("LogoURL = %q, 应来自第二个变体", outcome.LogoURL)
		}
	})
}

func TestStaticCrawler_SendsBrowserHeaders(t *testing.T) {
	var gotUA, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body><p>plain page without any branding at all</p></body></html>"))
	}))
	defer srv.Close()

	sc := newTestStaticCrawler()
	_ = sc.tryVariants([]string{srv.URL}, "acme.example.org")

	// 长尾站点常按UA拒绝爬虫,静态阶段必须带浏览器身份
	if !strings.HasPrefix(gotUA, "Mozilla/5.0") {
		t.Errorf("User-Agent = %q, 应为浏览器风格UA", gotUA)
	}
	if !strings.Contains(gotAccept, "text/html") {
		t.Errorf("Accept = %q, 应声明text/html", gotAccept)
	}
}

func TestStaticCrawler_ProcessDomain_InvalidDomain(t *testing.T) {
	sc := newTestStaticCrawler()

	outcome := sc.ProcessDomain("not a domain")

	if outcome.Found {
		t.Error("非法域名不应命中")
	}
	if outcome.NeedsRender {
		t.Error("非法域名是终态失败,不应进入渲染阶段")
	}
}

func TestDomainVariants(t *testing.T) {
	t.Run("裸域生成四个变体", func(t *testing.T) {
		got := domainVariants("example.com")
		want := []string{
			"https://example.com",
			"https://www.example.com",
			"http://example.com",
			"http://www.example.com",
		}
		if len(got) != len(want) {
			t.Fatalf("变体数量 = %d, want %d", len(got), len(want))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("变体[%d] = %q, want %q", i, got[i], want[i])
			}
		}
	})

	t.Run("www域不再叠加前缀", func(t *testing.T) {
		got := domainVariants("www.example.com")
		if len(got) != 2 {
			t.Fatalf("变体数量 = %d, want 2", len(got))
		}
		if got[0] != "https://www.example.com" || got[1] != "http://www.example.com" {
			t.Errorf("www域变体不符: %v", got)
		}
	})
}

func TestDecompressResponse(t *testing.T) {
	payload := []byte(`<html><body><img src="/logo.png"></body></html>`)

	t.Run("gzip解压", func(t *testing.T) {
		var buf bytes.Buffer
		gw := gzip.NewWriter(&buf)
		_, _ = gw.Write(payload)
		_ = gw.Close()

		got, err := decompressResponse("gzip", buf.Bytes())
		if err != nil {
			t.Fatalf("decompressResponse() error = %v", err)
		}
		if string(got) != string(payload) {
			t.Errorf("解压结果不符: %q", got)
		}
	})

	t.Run("无压缩原样返回", func(t *testing.T) {
		got, err := decompressResponse("", payload)
		if err != nil {
			t.Fatalf("decompressResponse() error = %v", err)
		}
		if string(got) != string(payload) {
			t.Errorf("原样返回失败: %q", got)
		}
	})

	t.Run("未知编码原样返回", func(t *testing.T) {
		got, err := decompressResponse("zstd", payload)
		if err != nil {
			t.Fatalf("decompressResponse() error = %v", err)
		}
		if string(got) != string(payload) {
			t.Errorf("原样返回失败: %q", got)
		}
	})
}
