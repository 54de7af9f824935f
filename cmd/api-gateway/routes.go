package main

import (
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-records-api/internal/handler"
	"github.com/noah-isme/campus-records-api/internal/middleware"
	"github.com/noah-isme/campus-records-api/internal/models"
	"github.com/noah-isme/campus-records-api/internal/repository"
	"github.com/noah-isme/campus-records-api/internal/service"
	"github.com/noah-isme/campus-records-api/pkg/config"
	"github.com/noah-isme/campus-records-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/campus-records-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/campus-records-api/pkg/middleware/requestid"
)

type services struct {
	gateway        *repository.Gateway
	metrics        *service.MetricsService
	auth           *service.AuthService
	changeRequests *service.ChangeRequestService
	assignments    *service.TutorAssignmentService
	students       *service.StudentService
	staff          *service.StaffService
	parents        *service.ParentService
	catalog        *service.CatalogService
}

func buildServices(cfg *config.Config, logr *zap.Logger, collections *repository.Collections, metrics *service.MetricsService, bcryptCost int) (*services, error) {
	validate := validator.New()

	auth, err := service.NewAuthService(collections.Students, collections.Staff, collections.Parents, validate, logr.Named("auth"), service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
		StudentPassword:   cfg.Auth.StudentPassword,
		StaffPassword:     cfg.Auth.StaffPassword,
		ParentPassword:    cfg.Auth.ParentPassword,
		Admins: []service.AdminAccount{
			{Email: cfg.Auth.Admin1Email, Password: cfg.Auth.Admin1Password, Name: "Admin 1", Role: models.RoleAdmin1},
			{Email: cfg.Auth.Admin2Email, Password: cfg.Auth.Admin2Password, Name: "Admin 2", Role: models.RoleAdmin2},
		},
		BcryptCost: bcryptCost,
	})
	if err != nil {
		return nil, err
	}

	return &services{
		gateway:        collections.Gateway,
		metrics:        metrics,
		auth:           auth,
		changeRequests: service.NewChangeRequestService(repository.NewChangeRequestRepository(collections), collections.Students, validate, metrics, logr.Named("workflow")),
		assignments:    service.NewTutorAssignmentService(collections.Students, collections.Staff, metrics, logr.Named("assignment")),
		students:       service.NewStudentService(collections.Students, collections.Parents, validate, logr.Named("students")),
		staff:          service.NewStaffService(collections.Staff, collections.Students, validate, logr.Named("staff")),
		parents:        service.NewParentService(collections.Parents, collections.Students, validate, logr.Named("parents")),
		catalog:        service.NewCatalogService(collections.Departments, collections.Subjects, validate, logr.Named("catalog")),
	}, nil
}

func newRouter(cfg *config.Config, logr *zap.Logger, svc *services) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(svc.metrics))

	system := handler.NewSystemHandler(svc.metrics, svc.gateway)
	r.GET("/health", system.Health)
	r.GET("/ready", system.Ready)
	r.GET("/metrics", system.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	admins := middleware.RequireRoles(models.RoleAdmin1, models.RoleAdmin2)
	admin1 := middleware.RequireRoles(models.RoleAdmin1)
	faculty := middleware.RequireRoles(models.RoleAdmin1, models.RoleAdmin2, models.RoleStaff)

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.PersistenceMode(svc.gateway))

	authHandler := handler.NewAuthHandler(svc.auth)
	api.POST("/auth/login", authHandler.Login)

	secured := api.Group("")
	secured.Use(middleware.JWT(svc.auth))
	secured.GET("/auth/me", authHandler.Me)
	secured.GET("/gateway/status", admins, system.GatewayStatus)

	students := handler.NewStudentHandler(svc.students, svc.parents)
	secured.GET("/students", faculty, students.List)
	secured.GET("/students/:id", middleware.RBAC(string(models.RoleAdmin1), string(models.RoleAdmin2), string(models.RoleStaff), middleware.Self), students.Get)
	secured.PUT("/students/:id", admins, middleware.Audit(logr, "upsert", "student"), students.Upsert)
	secured.DELETE("/students/:id", admin1, middleware.Audit(logr, "delete", "student"), students.Delete)
	secured.POST("/students/:id/attendance", faculty, students.RecordAttendance)
	secured.POST("/students/:id/marks", faculty, students.RecordMark)
	secured.GET("/students/:id/parent", middleware.RBAC(string(models.RoleAdmin1), string(models.RoleAdmin2), string(models.RoleStaff), middleware.Self), students.Parent)

	staff := handler.NewStaffHandler(svc.staff)
	secured.GET("/staff", faculty, staff.List)
	secured.GET("/staff/:id", faculty, staff.Get)
	secured.POST("/staff", admin1, middleware.Audit(logr, "create", "staff"), staff.Create)
	secured.PUT("/staff/:id", admin1, middleware.Audit(logr, "update", "staff"), staff.Update)
	secured.DELETE("/staff/:id", admin1, middleware.Audit(logr, "delete", "staff"), staff.Delete)
	secured.PUT("/staff/:id/hod", admin1, middleware.Audit(logr, "set_hod", "staff"), staff.SetHOD)
	secured.PUT("/staff/:id/allocation", admins, staff.AllocateSubjects)
	secured.POST("/staff/:id/allocation/review", admin1, middleware.Audit(logr, "review_allocation", "staff"), staff.ReviewAllocation)

	parents := handler.NewParentHandler(svc.parents)
	secured.GET("/parents", admins, parents.List)
	secured.GET("/parents/:id", middleware.RBAC(string(models.RoleAdmin1), string(models.RoleAdmin2), middleware.Self), parents.Get)
	secured.PUT("/parents/:id", admins, middleware.Audit(logr, "upsert", "parent"), parents.Upsert)
	secured.DELETE("/parents/:id", admins, middleware.Audit(logr, "delete", "parent"), parents.Delete)

	catalog := handler.NewCatalogHandler(svc.catalog)
	secured.GET("/departments", catalog.ListDepartments)
	secured.PUT("/departments/:id", admin1, catalog.UpsertDepartment)
	secured.DELETE("/departments/:id", admin1, catalog.DeleteDepartment)
	secured.GET("/subjects", catalog.ListSubjects)
	secured.PUT("/subjects/:code", admin1, catalog.UpsertSubject)
	secured.DELETE("/subjects/:code", admin1, catalog.DeleteSubject)

	assignments := handler.NewAssignmentHandler(svc.assignments)
	secured.POST("/tutor-assignments", admins, middleware.Audit(logr, "assign_tutors", "student"), assignments.Run)

	if cfg.Workflow.Enabled {
		requests := handler.NewChangeRequestHandler(svc.changeRequests)
		workflow := secured.Group("/change-requests")
		workflow.POST("", middleware.RequireRoles(models.RoleStudent, models.RoleAdmin1, models.RoleAdmin2), requests.Submit)
		workflow.GET("", requests.List)
		workflow.GET("/:id", requests.Get)
		workflow.POST("/:id/review", middleware.RequireRoles(models.RoleAdmin2), middleware.Audit(logr, "first_tier_review", "change_request"), requests.Review)
		workflow.POST("/:id/reject", middleware.RequireRoles(models.RoleAdmin2), middleware.Audit(logr, "reject", "change_request"), requests.Reject)
		workflow.POST("/:id/execute", middleware.RequireRoles(models.RoleAdmin1), middleware.Audit(logr, "execute", "change_request"), requests.Execute)
	}

	return r
}
