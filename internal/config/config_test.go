package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/ocr-extract/internal/provider"
)

var _ = Describe("Parse", func() {
	var (
		args []string
		cfg  *Config
		err  error
	)

	BeforeEach(func() {
		args = nil
		for _, name := range []string{"LOVABLE_API_KEY", "GEMINI_API_KEY", "OCR_EXTRACT_GATEWAY_KEY", "OCR_EXTRACT_PORT", "OCR_EXTRACT_PROVIDER"} {
			if prev, ok := os.LookupEnv(name); ok {
				DeferCleanup(os.Setenv, name, prev)
			}
			Expect(os.Unsetenv(name)).To(Succeed())
		}
	})

	JustBeforeEach(func() {
		cfg, _, err = Parse("ocr-extract", args)
	})

	When("nothing is configured", func() {
		It("uses the defaults", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Port).To(Equal(8080))
			Expect(cfg.Provider).To(Equal(ProviderGateway))
			Expect(cfg.GatewayURL).To(Equal(provider.DefaultGatewayURL))
			Expect(cfg.GatewayModel).To(Equal(provider.DefaultGatewayModel))
			Expect(cfg.ProviderTimeout).To(Equal(120 * time.Second))
			Expect(cfg.ConvertDocuments()).To(BeTrue())
			Expect(cfg.DBPath).To(BeEmpty())
			Expect(cfg.MaxBodyBytes()).To(Equal(int64(25 << 20)))
			Expect(cfg.GatewayKey).To(BeEmpty())
		})
	})

	When("flags are given", func() {
		BeforeEach(func() {
			args = []string{"--port", "9090", "--provider", "ollama", "--provider-timeout", "30s", "--raw-documents", "--max-body-mb", "5"}
		})

		It("applies them", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Port).To(Equal(9090))
			Expect(cfg.Provider).To(Equal(ProviderOllama))
			Expect(cfg.ProviderTimeout).To(Equal(30 * time.Second))
			Expect(cfg.ConvertDocuments()).To(BeFalse())
			Expect(cfg.MaxBodyBytes()).To(Equal(int64(5 << 20)))
		})
	})

	When("prefixed environment variables are set", func() {
		BeforeEach(func() {
			GinkgoT().Setenv("OCR_EXTRACT_PORT", "7070")
			GinkgoT().Setenv("OCR_EXTRACT_GATEWAY_KEY", "from-prefix")
			GinkgoT().Setenv("LOVABLE_API_KEY", "from-fallback")
		})

		It("prefers them over the fallback variables", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Port).To(Equal(7070))
			Expect(cfg.GatewayKey).To(Equal("from-prefix"))
		})
	})

	When("only the conventional key variables are set", func() {
		BeforeEach(func() {
			GinkgoT().Setenv("LOVABLE_API_KEY", "lovable")
			GinkgoT().Setenv("GEMINI_API_KEY", "gemini")
		})

		It("falls back to them", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.GatewayKey).To(Equal("lovable"))
			Expect(cfg.GeminiKey).To(Equal("gemini"))
		})
	})

	When("a flag is unknown", func() {
		BeforeEach(func() {
			args = []string{"--scanner", "gemini"}
		})

		It("returns an error", func() {
			Expect(err).To(HaveOccurred())
		})
	})
})

var _ = Describe("NewProvider", func() {
	var cfg *Config

	BeforeEach(func() {
		cfg = &Config{
			Provider:        ProviderGateway,
			GatewayURL:      provider.DefaultGatewayURL,
			GatewayModel:    provider.DefaultGatewayModel,
			OllamaURL:       "http://localhost:11434",
			OllamaModel:     "llava",
			ProviderTimeout: time.Second,
		}
	})

	It("reports a missing gateway key", func() {
		p, err := cfg.NewProvider()
		Expect(p).To(BeNil())
		Expect(errors.Is(err, ErrMissingCredential)).To(BeTrue())
	})

	It("reports a missing gemini key", func() {
		cfg.Provider = ProviderGemini
		_, err := cfg.NewProvider()
		Expect(errors.Is(err, ErrMissingCredential)).To(BeTrue())
	})

	It("builds the gateway provider", func() {
		cfg.GatewayKey = "key"
		p, err := cfg.NewProvider()
		Expect(err).NotTo(HaveOccurred())
		Expect(p).To(BeAssignableToTypeOf(&provider.Gateway{}))
		Expect(p.Name()).To(Equal("gateway:" + provider.DefaultGatewayModel))
	})

	It("builds the ollama provider without a key", func() {
		cfg.Provider = ProviderOllama
		p, err := cfg.NewProvider()
		Expect(err).NotTo(HaveOccurred())
		Expect(p).To(BeAssignableToTypeOf(&provider.Ollama{}))
	})

	It("rejects unknown providers", func() {
		cfg.Provider = "tesseract"
		_, err := cfg.NewProvider()
		Expect(err).To(HaveOccurred())
		Expect(errors.Is(err, ErrMissingCredential)).To(BeFalse())
	})
})

var _ = Describe("NewHistory", func() {
	It("is disabled without a database path", func() {
		svc, closeFn, err := (&Config{}).NewHistory()
		Expect(err).NotTo(HaveOccurred())
		Expect(svc).To(BeNil())
		Expect(closeFn()).To(Succeed())
	})

	It("opens the database and storage", func() {
		tmpDir := GinkgoT().TempDir()
		cfg := &Config{
			DBPath:      filepath.Join(tmpDir, "history.db"),
			StoragePath: filepath.Join(tmpDir, "documents"),
		}

		svc, closeFn, err := cfg.NewHistory()
		Expect(err).NotTo(HaveOccurred())
		Expect(svc).NotTo(BeNil())
		Expect(filepath.Join(tmpDir, "documents")).To(BeADirectory())
		Expect(closeFn()).To(Succeed())
	})
})
