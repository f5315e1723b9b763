package dnsserver

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/miekg/dns"
	"go.uber.org/zap"

	"github.com/hewenyu/service-registry/internal/config"
	"github.com/hewenyu/service-registry/pkg/model"
	"github.com/hewenyu/service-registry/pkg/storage"
)

// Server 基于注册存储的DNS查询服务。
// 回答形如 <service-name>.<domain> 的A记录查询，
// 只返回权威状态为healthy的实例地址。
type Server struct {
	store     storage.RegistryStore
	logger    config.Logger
	domain    string
	udpServer *dns.Server
	tcpServer *dns.Server
}

// NewServer 创建DNS服务器
func NewServer(cfg *config.Config, store storage.RegistryStore, logger config.Logger) *Server {
	domain := dns.Fqdn(strings.ToLower(cfg.DNS.Domain))
	addr := fmt.Sprintf("%s:%d", cfg.DNS.ListenAddress, cfg.DNS.Port)

	s := &Server{
		store:  store,
		logger: logger,
		domain: domain,
	}

	if cfg.DNS.Protocol == "udp" || cfg.DNS.Protocol == "both" {
		s.udpServer = &dns.Server{
			Addr:    addr,
			Net:     "udp",
			Handler: s,
		}
	}
	if cfg.DNS.Protocol == "tcp" || cfg.DNS.Protocol == "both" {
		s.tcpServer = &dns.Server{
			Addr:    addr,
			Net:     "tcp",
			Handler: s,
		}
	}

	return s
}

// Start 启动DNS服务器
func (s *Server) Start() {
	if s.udpServer != nil {
		go func() {
			s.logger.Info("DNS UDP服务器启动", zap.String("addr", s.udpServer.Addr))
			if err := s.udpServer.ListenAndServe(); err != nil {
				s.logger.Error("DNS UDP服务器启动失败", zap.Error(err))
			}
		}()
	}
	if s.tcpServer != nil {
		go func() {
			s.logger.Info("DNS TCP服务器启动", zap.String("addr", s.tcpServer.Addr))
			if err := s.tcpServer.ListenAndServe(); err != nil {
				s.logger.Error("DNS TCP服务器启动失败", zap.Error(err))
			}
		}()
	}
}

// Stop 停止DNS服务器
func (s *Server) Stop() {
	if s.udpServer != nil {
		if err := s.udpServer.Shutdown(); err != nil {
			s.logger.Error("关闭DNS UDP服务器失败", zap.Error(err))
		}
	}
	if s.tcpServer != nil {
		if err := s.tcpServer.Shutdown(); err != nil {
			s.logger.Error("关闭DNS TCP服务器失败", zap.Error(err))
		}
	}
}

// ServeDNS 处理DNS请求
func (s *Server) ServeDNS(w dns.ResponseWriter, r *dns.Msg) {
	m := new(dns.Msg)
	m.SetReply(r)

	// 只处理标准查询
	if r.Opcode != dns.OpcodeQuery {
		m.Rcode = dns.RcodeNotImplemented
		w.WriteMsg(m)
		return
	}
	if len(r.Question) == 0 {
		m.Rcode = dns.RcodeFormatError
		w.WriteMsg(m)
		return
	}

	q := r.Question[0]
	name := strings.ToLower(q.Name)

	// 非本域或非A记录查询直接返回NXDOMAIN
	if q.Qtype != dns.TypeA || !strings.HasSuffix(name, "."+s.domain) {
		m.Rcode = dns.RcodeNameError
		w.WriteMsg(m)
		return
	}

	serviceName := strings.TrimSuffix(name, "."+s.domain)
	answers := s.resolve(serviceName, q.Name)
	if len(answers) == 0 {
		m.Rcode = dns.RcodeNameError
		w.WriteMsg(m)
		return
	}

	m.Answer = answers
	m.Authoritative = true
	w.WriteMsg(m)
}

// resolve 查询指定服务名下所有healthy实例的A记录
func (s *Server) resolve(serviceName, queryName string) []dns.RR {
	ctx := context.Background()
	records, err := s.store.ListByName(ctx, serviceName)
	if err != nil {
		s.logger.Error("DNS查询存储失败",
			zap.String("service_name", serviceName),
			zap.Error(err),
		)
		return nil
	}

	answers := make([]dns.RR, 0, len(records))
	for _, record := range records {
		if record.Status != model.StatusHealthy {
			continue
		}
		ip := net.ParseIP(record.Host)
		if ip == nil || ip.To4() == nil {
			// 主机名形式的地址无法作为A记录返回
			continue
		}
		answers = append(answers, &dns.A{
			Hdr: dns.RR_Header{
				Name:   queryName,
				Rrtype: dns.TypeA,
				Class:  dns.ClassINET,
				Ttl:    30,
			},
			A: ip.To4(),
		})
	}

	s.logger.Debug("DNS查询",
		zap.String("service_name", serviceName),
		zap.Int("answers", len(answers)),
	)
	return answers
}
