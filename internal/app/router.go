package app

import (
	"quiz_engine_backend/docs"
	"quiz_engine_backend/internal/config"
	"quiz_engine_backend/internal/middleware"
	"quiz_engine_backend/internal/model"
	"quiz_engine_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. public
	router.GET("/api/health", c.health.HealthCheck)

	// 2. authenticated
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), middleware.RequestTimeout(cfg.Server.RequestTimeout()))
	{
		a.registerQuizRoutes(authGroup, c)
		a.registerTeacherRoutes(authGroup, c)
		a.registerStudentRoutes(authGroup, c)
	}
}

// registerQuizRoutes are readable by any signed-in user; the controller
// strips answers for learners.
func (a *App) registerQuizRoutes(r *gin.RouterGroup, c *controllers) {
	r.GET("/quizzes/exists", c.quiz.Exists)
	r.GET("/quizzes/:id", c.quiz.Get)
	r.GET("/quizzes/:id/attempts/me", c.attempt.MyResult)
	r.GET("/subjects/:subjectId/quiz", c.quiz.GetBySubject)
	r.GET("/subjects/:subjectId/quizzes", c.quiz.ListBySubject)
}

func (a *App) registerTeacherRoutes(r *gin.RouterGroup, c *controllers) {
	teacher := r.Group("/teacher")
	teacher.Use(middleware.RoleMiddleware(model.Teacher))
	{
		teacher.POST("/quizzes", c.quiz.Save)
		teacher.DELETE("/quizzes/:id", c.quiz.Delete)
		teacher.GET("/quizzes/:id/attempts", c.attempt.Summary)
		teacher.POST("/subjects/:subjectId/draft", c.quiz.GenerateDraft)

		teacher.POST("/subjects/:subjectId/authoring", c.authoring.Open)
		authoring := teacher.Group("/authoring/:sid")
		{
			authoring.GET("", c.authoring.Get)
			authoring.GET("/ws", c.authoring.Watch)
			authoring.DELETE("", c.authoring.Cancel)
			authoring.POST("/generate", c.authoring.Generate)
			authoring.POST("/scratch", c.authoring.StartFromScratch)
			authoring.POST("/questions", c.authoring.AddQuestion)
			authoring.PUT("/questions/:pos", c.authoring.ReplaceQuestion)
			authoring.DELETE("/questions/:pos", c.authoring.RemoveQuestion)
			authoring.PATCH("/meta", c.authoring.SetMeta)
			authoring.POST("/save", c.authoring.Save)
		}
	}
}

func (a *App) registerStudentRoutes(r *gin.RouterGroup, c *controllers) {
	student := r.Group("/student")
	student.Use(middleware.RoleMiddleware(model.Student))
	{
		student.POST("/quizzes/:id/attempts", c.attempt.Submit)

		student.POST("/taking", c.taking.Open)
		taking := student.Group("/taking/:sid")
		{
			taking.GET("", c.taking.Get)
			taking.GET("/ws", c.taking.Watch)
			taking.POST("/begin", c.taking.Begin)
			taking.PUT("/answers/:pos", c.taking.Answer)
			taking.POST("/submit", c.taking.Submit)
		}
	}
}
