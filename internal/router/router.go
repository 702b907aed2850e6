package router

import (
	"net/http"

	"community_hub/internal/config"
	"community_hub/internal/handler"
	"community_hub/internal/logger"
	"community_hub/internal/middleware"
	"community_hub/internal/pkg"
	"community_hub/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps 路由依赖的全部服务
type Deps struct {
	Server       config.ServerConfig
	JWT          *pkg.JWT
	Tokens       middleware.TokenStore
	Users        *service.UserService
	Areas        *service.AreaService
	Communities  *service.CommunityService
	Members      *service.MembershipService
	JoinRequests *service.JoinRequestService
	Events       *service.EventService
	Payments     *service.PaymentService
}

func InitRouter(d Deps) *gin.Engine {
	if !d.Server.DevelopMode {
		gin.SetMode(gin.ReleaseMode)
	}
	handler.InitTrans()

	r := gin.New()
	r.Use(logger.GinLogger(), logger.GinRecovery(true), middleware.Metrics())
	if len(d.Server.CORSOrigins) > 0 {
		r.Use(middleware.CORS(d.Server.CORSOrigins))
	}
	if d.Server.Rate > 0 && d.Server.Capacity > 0 {
		r.Use(middleware.RateLimit(d.Server.Rate, d.Server.Capacity))
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	user := handler.NewUserHandler(d.Users)
	email := handler.NewEmailHandler(d.Users)
	area := handler.NewAreaHandler(d.Areas)
	community := handler.NewCommunityHandler(d.Communities, d.JoinRequests)
	member := handler.NewMembershipHandler(d.Members)
	joinRequest := handler.NewJoinRequestHandler(d.JoinRequests)
	event := handler.NewEventHandler(d.Events)
	payment := handler.NewPaymentHandler(d.Payments)

	auth := middleware.AuthMiddleware(d.JWT, d.Tokens)

	// 用户相关接口
	userGroup := r.Group("/api/user")
	{
		userGroup.POST("/register", user.Register)
		userGroup.POST("/login", user.Login)
		userGroup.POST("/refresh", user.TokenRefresh)
		userGroup.POST("/reset-code", email.SendResetCode)
		userGroup.POST("/reset", email.ResetPassword)
		userGroup.POST("/logout", auth, user.Logout)
	}

	// 地区，公开且不分页
	areaGroup := r.Group("/api/areas")
	{
		areaGroup.GET("", area.List)
		areaGroup.GET("/cities", area.Cities)
	}

	// 登录态接口
	authGroup := r.Group("/api/auth")
	authGroup.Use(auth)
	{
		authGroup.GET("/me", user.Me)
		authGroup.PATCH("/me", user.UpdateMe)
		authGroup.POST("/avatar", user.UploadAvatar)
		authGroup.POST("/change-password", user.ChangePassword)
		authGroup.GET("/memberships", member.Mine)
	}

	api := r.Group("/api")
	api.Use(auth)
	{
		api.GET("/people", user.ListPeople)

		api.GET("/communities", community.PublicList)
		api.GET("/communities/mine", community.Mine)
		api.GET("/communities/:slug", community.PublicDetail)
		api.POST("/communities/:slug/join", community.Join)
		api.POST("/communities/:slug/leave", member.Leave)
		api.GET("/communities/:slug/events", event.List)

		api.GET("/join-requests/mine", joinRequest.ListMine)

		api.GET("/events/:id", event.Get)
		api.GET("/events/:id/collaborations", event.ListCollaborations)
		api.POST("/events/:id/registrations", event.Register)

		api.POST("/registrations/:id/payment", payment.Submit)
		api.GET("/payments/:id", payment.Get)
	}

	// 管理端接口，可见范围由 policy 决定
	manage := r.Group("/api/manage")
	manage.Use(auth)
	{
		manage.GET("/communities", community.ManageList)
		manage.GET("/communities/summary", community.ManageSummary)
		manage.POST("/communities", community.Create)
		manage.GET("/communities/:slug", community.ManageDetail)
		manage.PATCH("/communities/:slug", community.Update)
		manage.DELETE("/communities/:slug", community.Deactivate)
		manage.GET("/communities/:slug/detail", community.GetDetail)
		manage.PUT("/communities/:slug/detail", community.UpdateDetail)

		manage.GET("/communities/:slug/members", member.List)
		manage.POST("/communities/:slug/members", member.Add)
		manage.PATCH("/communities/:slug/members/:id", member.ChangeRole)
		manage.DELETE("/communities/:slug/members/:id", member.Remove)

		manage.POST("/communities/:slug/events", event.Create)
		manage.PATCH("/events/:id", event.Update)
		manage.DELETE("/events/:id", event.Delete)
		manage.POST("/events/:id/collaborations", event.RequestCollaboration)
		manage.PATCH("/events/:id/collaborations/:cid", event.RespondCollaboration)
		manage.DELETE("/events/:id/collaborations/:cid", event.CancelCollaboration)
		manage.GET("/events/:id/registrations", event.ListRegistrations)

		manage.GET("/join-requests", joinRequest.ListManaged)
		manage.PATCH("/join-requests/:id", joinRequest.Resolve)

		manage.PATCH("/payments/:id", payment.UpdateStatus)
	}

	return r
}
