package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"moff.io/walletkit/internal/cache"
	"moff.io/walletkit/internal/config"
	"moff.io/walletkit/internal/http"
	"moff.io/walletkit/internal/qrcode"
	"moff.io/walletkit/internal/starter"
	"moff.io/walletkit/internal/walletkit"
	"moff.io/walletkit/pkg/errors"
	"moff.io/walletkit/pkg/log"
)

func main() {
	log.Infof("Starting walletkit")
	startApp()
}

func startApp() {
	defer func() {
		if i := recover(); i != nil {
			log.Fatal(errors.ErrorfAndReport("%v", i))
		}
	}()
	config.Read()
	conf := config.Global
	log.SetLevel(conf.LogLevel)
	if err := errors.NewSentryReporter(conf.SentryDSN); err != nil {
		log.Error(err)
	}
	errors.NewLarkReporter(conf.LarkAlarmWebhook, time.Minute)

	if err := cache.Init(&conf.RedisCredential); err != nil {
		log.Fatal(err)
	}
	defer cache.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	walletkit.UseRelay(conf)
	components := []starter.Startable{
		walletkit.NewComponent(walletkit.SessionKit, func(c *config.Configuration) string { return c.WalletKit.ProjectID }),
		walletkit.NewComponent(walletkit.PairingKit, func(c *config.Configuration) string { return c.Pairing.ProjectID }),
	}
	starter.Start(ctx, conf, components...)

	encoderOpts := []qrcode.Option{qrcode.WithSize(conf.QRCode.Size)}
	var limiter http.RateLimiter
	if cache.Redis != nil {
		encoderOpts = append(encoderOpts, qrcode.WithCache(cache.NewQRStore(cache.Redis, conf.QRCode.CacheTTL)))
		if conf.RateLimit.PerMinute > 0 {
			limiter = http.NewRedisRateLimiter(cache.RateLimiter, conf.RateLimit.PerMinute)
		}
	}

	gin.SetMode(gin.ReleaseMode)
	gin.DefaultWriter = log.Writer()
	server := http.NewServer(http.Options{
		Addr:    conf.HTTPAddr,
		Session: walletkit.SessionKit,
		Pairing: walletkit.PairingKit,
		Encoder: qrcode.NewEncoder(encoderOpts...),
		Limiter: limiter,
	})
	go func() {
		if err := server.Run(); err != nil {
			log.Fatal(err)
		}
	}()
	<-ctx.Done()
	log.Info("shutting down walletkit")
	starter.Stop(components...)
}
