// Package docs Swagger 文档，路由与 handler 注解一致；改动注解后用 go generate 重新生成
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/v1/generations": {
            "post": {
                "description": "创建一个空白创作，状态为 drafting",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "创作"
                ],
                "summary": "创建草稿",
                "parameters": [
                    {
                        "description": "标题与风格",
                        "name": "request",
                        "in": "body",
                        "required": false,
                        "schema": {
                            "$ref": "#/definitions/generation.CreateRequest"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "成功响应",
                        "schema": {
                            "type": "object",
                            "additionalProperties": true
                        }
                    },
                    "400": {
                        "description": "请求参数错误",
                        "schema": {
                            "$ref": "#/definitions/http.ErrorResponse"
                        }
                    },
                    "500": {
                        "description": "服务器内部错误",
                        "schema": {
                            "$ref": "#/definitions/http.ErrorResponse"
                        }
                    }
                }
            },
            "get": {
                "description": "按更新时间倒序列出创作，附带状态、步骤、缩略图与花费",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "创作"
                ],
                "summary": "草稿列表",
                "parameters": [
                    {
                        "type": "string",
                        "description": "状态筛选，例如 filming,ready",
                        "name": "status",
                        "in": "query",
                        "required": false
                    },
                    {
                        "type": "integer",
                        "description": "条数上限",
                        "name": "limit",
                        "in": "query",
                        "required": false
                    }
                ],
                "responses": {
                    "200": {
                        "description": "成功响应",
                        "schema": {
                            "type": "object",
                            "additionalProperties": true
                        }
                    },
                    "400": {
                        "description": "请求参数错误",
                        "schema": {
                            "$ref": "#/definitions/http.ErrorResponse"
                        }
                    },
                    "500": {
                        "description": "服务器内部错误",
                        "schema": {
                            "$ref": "#/definitions/http.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/v1/generations/{id}": {
            "get": {
                "description": "返回完整流水线状态、阶段、步骤与当前可执行操作",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "创作"
                ],
                "summary": "创作详情",
                "parameters": [
                    {
                        "type": "string",
                        "description": "创作ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "成功响应",
                        "schema": {
                            "type": "object",
                            "additionalProperties": true
                        }
                    },
                    "404": {
                        "description": "创作不存在",
                        "schema": {
                            "$ref": "#/definitions/http.ErrorResponse"
                        }
                    }
                }
            },
            "delete": {
                "description": "删除创作记录及其全部素材",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "创作"
                ],
                "summary": "删除创作",
                "parameters": [
                    {
                        "type": "string",
                        "description": "创作ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "成功响应",
                        "schema": {
                            "type": "object",
                            "additionalProperties": true
                        }
                    },
                    "404": {
                        "description": "创作不存在",
                        "schema": {
                            "$ref": "#/definitions/http.ErrorResponse"
                        }
                    },
                    "500": {
                        "description": "服务器内部错误",
                        "schema": {
                            "$ref": "#/definitions/http.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/v1/generations/{id}/back": {
            "post": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "成片"
                ],
                "summary": "返回上一步",
                "parameters": [
                    {
                        "type": "string",
                        "description": "创作ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "成功响应",
                        "schema": {
                            "type": "object",
                            "additionalProperties": true
                        }
                    },
                    "409": {
                        "description": "当前阶段不允许",
                        "schema": {
                            "$ref": "#/definitions/http.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/v1/generations/{id}/close": {
            "post": {
                "description": "取消进行中的调用与轮询并释放内存中的控制器，状态保留在存储中",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "创作"
                ],
                "summary": "关闭创作",
                "parameters": [
                    {
                        "type": "string",
                        "description": "创作ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "成功响应",
                        "schema": {
                            "type": "object",
                            "additionalProperties": true
                        }
                    }
                }
            }
        },
        "/api/v1/generations/{id}/film": {
            "post": {
                "description": "以已确认的角色、场景与关键时刻提交成片任务，之后由服务端轮询进度",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "成片"
                ],
                "summary": "开始成片",
                "parameters": [
                    {
                        "type": "string",
                        "description": "创作ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "成功响应",
                        "schema": {
                            "type": "object",
                            "additionalProperties": true
                        }
                    },
                    "409": {
                        "description": "关键时刻未就绪",
                        "schema": {
                            "$ref": "#/definitions/http.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/v1/generations/{id}/film/shots/{n}/regenerate": {
            "post": {
                "description": "成片完成或失败后按反馈重拍单个镜头并重新拼接，之后恢复轮询同一任务",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "成片"
                ],
                "summary": "重拍镜头",
                "parameters": [
                    {
                        "type": "string",
                        "description": "创作ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "integer",
                        "description": "镜头编号（从 1 开始）",
                        "name": "n",
                        "in": "path",
                        "required": true
                    },
                    {
                        "description": "修改意见",
                        "name": "request",
                        "in": "body",
                        "required": false,
                        "schema": {
                            "$ref": "#/definitions/generation.FeedbackRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "成功响应",
                        "schema": {
                            "type": "object",
                            "additionalProperties": true
                        }
                    },
                    "400": {
                        "description": "请求参数错误",
                        "schema": {
                            "$ref": "#/definitions/http.ErrorResponse"
                        }
                    },
                    "409": {
                        "description": "当前阶段不允许或生成服务不支持",
                        "schema": {
                            "$ref": "#/definitions/http.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/v1/generations/{id}/idea": {
            "post": {
                "description": "清空当前进度并异步生成故事，旧素材会被删除",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "故事"
                ],
                "summary": "提交创意",
                "parameters": [
                    {
                        "type": "string",
                        "description": "创作ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "description": "创意、风格与时长",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/generation.SubmitIdeaRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "成功响应",
                        "schema": {
                            "type": "object",
                            "additionalProperties": true
                        }
                    },
                    "400": {
                        "description": "请求参数错误",
                        "schema": {
                            "$ref": "#/definitions/http.ErrorResponse"
                        }
                    },
                    "404": {
                        "description": "创作不存在",
                        "schema": {
                            "$ref": "#/definitions/http.ErrorResponse"
                        }
                    },
                    "409": {
                        "description": "当前阶段不允许",
                        "schema": {
                            "$ref": "#/definitions/http.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/v1/generations/{id}/key-moment": {
            "post": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "视觉设定"
                ],
                "summary": "生成关键时刻",
                "parameters": [
                    {
                        "type": "string",
                        "description": "创作ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "成功响应",
                        "schema": {
                            "type": "object",
                            "additionalProperties": true
                        }
                    },
                    "409": {
                        "description": "仍有未确认的角色或场景",
                        "schema": {
                            "$ref": "#/definitions/http.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/v1/generations/{id}/key-moment/refine": {
            "post": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "视觉设定"
                ],
                "summary": "修改关键时刻",
                "parameters": [
                    {
                        "type": "string",
                        "description": "创作ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "description": "修改意见",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/generation.FeedbackRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "成功响应",
                        "schema": {
                            "type": "object",
                            "additionalProperties": true
                        }
                    },
                    "409": {
                        "description": "当前阶段不允许",
                        "schema": {
                            "$ref": "#/definitions/http.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/v1/generations/{id}/key-moment/retry": {
            "post": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "视觉设定"
                ],
                "summary": "重试关键时刻",
                "parameters": [
                    {
                        "type": "string",
                        "description": "创作ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "成功响应",
                        "schema": {
                            "type": "object",
                            "additionalProperties": true
                        }
                    },
                    "409": {
                        "description": "当前阶段不允许",
                        "schema": {
                            "$ref": "#/definitions/http.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/v1/generations/{id}/protagonist/change": {
            "post": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "视觉设定"
                ],
                "summary": "更换主角形象",
                "parameters": [
                    {
                        "type": "string",
                        "description": "创作ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "description": "确认与修改意见",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/generation.ChangeProtagonistRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "成功响应",
                        "schema": {
                            "type": "object",
                            "additionalProperties": true
                        }
                    },
                    "400": {
                        "description": "需要确认",
                        "schema": {
                            "$ref": "#/definitions/http.ErrorResponse"
                        }
                    },
                    "409": {
                        "description": "当前阶段不允许",
                        "schema": {
                            "$ref": "#/definitions/http.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/v1/generations/{id}/protagonist/generate": {
            "post": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "视觉设定"
                ],
                "summary": "生成主角形象",
                "parameters": [
                    {
                        "type": "string",
                        "description": "创作ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "description": "修改意见",
                        "name": "request",
                        "in": "body",
                        "required": false,
                        "schema": {
                            "$ref": "#/definitions/generation.FeedbackRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "成功响应",
                        "schema": {
                            "type": "object",
                            "additionalProperties": true
                        }
                    },
                    "409": {
                        "description": "当前阶段不允许",
                        "schema": {
                            "$ref": "#/definitions/http.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/v1/generations/{id}/protagonist/lock": {
            "post": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "视觉设定"
                ],
                "summary": "锁定主角",
                "parameters": [
                    {
                        "type": "string",
                        "description": "创作ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "成功响应",
                        "schema": {
                            "type": "object",
                            "additionalProperties": true
                        }
                    },
                    "409": {
                        "description": "当前阶段不允许",
                        "schema": {
                            "$ref": "#/definitions/http.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/v1/generations/{id}/retry": {
            "post": {
                "description": "故事失败时重新生成故事；成片失败或中断时以相同素材重新提交",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "成片"
                ],
                "summary": "重试",
                "parameters": [
                    {
                        "type": "string",
                        "description": "创作ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "成功响应",
                        "schema": {
                            "type": "object",
                            "additionalProperties": true
                        }
                    },
                    "409": {
                        "description": "当前阶段不允许",
                        "schema": {
                            "$ref": "#/definitions/http.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/v1/generations/{id}/slots/{slot}/approve": {
            "post": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "视觉设定"
                ],
                "summary": "确认角色或场景",
                "parameters": [
                    {
                        "type": "string",
                        "description": "创作ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "string",
                        "description": "setting 或角色ID",
                        "name": "slot",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "成功响应",
                        "schema": {
                            "type": "object",
                            "additionalProperties": true
                        }
                    },
                    "409": {
                        "description": "当前阶段不允许",
                        "schema": {
                            "$ref": "#/definitions/http.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/v1/generations/{id}/slots/{slot}/feedback": {
            "put": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "视觉设定"
                ],
                "summary": "保存修改意见",
                "parameters": [
                    {
                        "type": "string",
                        "description": "创作ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "string",
                        "description": "setting 或角色ID",
                        "name": "slot",
                        "in": "path",
                        "required": true
                    },
                    {
                        "description": "修改意见",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/generation.FeedbackRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "成功响应",
                        "schema": {
                            "type": "object",
                            "additionalProperties": true
                        }
                    }
                }
            }
        },
        "/api/v1/generations/{id}/slots/{slot}/generate": {
            "post": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "视觉设定"
                ],
                "summary": "生成角色或场景",
                "parameters": [
                    {
                        "type": "string",
                        "description": "创作ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "string",
                        "description": "setting 或角色ID",
                        "name": "slot",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "成功响应",
                        "schema": {
                            "type": "object",
                            "additionalProperties": true
                        }
                    },
                    "400": {
                        "description": "槽位不存在",
                        "schema": {
                            "$ref": "#/definitions/http.ErrorResponse"
                        }
                    },
                    "409": {
                        "description": "当前阶段不允许",
                        "schema": {
                            "$ref": "#/definitions/http.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/v1/generations/{id}/slots/{slot}/refine": {
            "post": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "视觉设定"
                ],
                "summary": "修改角色或场景",
                "parameters": [
                    {
                        "type": "string",
                        "description": "创作ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "string",
                        "description": "setting 或角色ID",
                        "name": "slot",
                        "in": "path",
                        "required": true
                    },
                    {
                        "description": "修改意见",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/generation.FeedbackRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "成功响应",
                        "schema": {
                            "type": "object",
                            "additionalProperties": true
                        }
                    },
                    "409": {
                        "description": "当前阶段不允许",
                        "schema": {
                            "$ref": "#/definitions/http.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/v1/generations/{id}/slots/{slot}/retry": {
            "post": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "视觉设定"
                ],
                "summary": "重试角色或场景",
                "parameters": [
                    {
                        "type": "string",
                        "description": "创作ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "string",
                        "description": "setting 或角色ID",
                        "name": "slot",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "成功响应",
                        "schema": {
                            "type": "object",
                            "additionalProperties": true
                        }
                    },
                    "409": {
                        "description": "当前阶段不允许",
                        "schema": {
                            "$ref": "#/definitions/http.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/v1/generations/{id}/start-over": {
            "post": {
                "description": "取消进行中的调用，删除全部素材并清零花费",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "成片"
                ],
                "summary": "重新开始",
                "parameters": [
                    {
                        "type": "string",
                        "description": "创作ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "成功响应",
                        "schema": {
                            "type": "object",
                            "additionalProperties": true
                        }
                    }
                }
            }
        },
        "/api/v1/generations/{id}/story/approve": {
            "post": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "故事"
                ],
                "summary": "确认故事",
                "parameters": [
                    {
                        "type": "string",
                        "description": "创作ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "成功响应",
                        "schema": {
                            "type": "object",
                            "additionalProperties": true
                        }
                    },
                    "409": {
                        "description": "当前阶段不允许",
                        "schema": {
                            "$ref": "#/definitions/http.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/v1/generations/{id}/story/beats/{n}/refine": {
            "post": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "故事"
                ],
                "summary": "修改节拍",
                "parameters": [
                    {
                        "type": "string",
                        "description": "创作ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "integer",
                        "description": "节拍编号（从 1 开始）",
                        "name": "n",
                        "in": "path",
                        "required": true
                    },
                    {
                        "description": "修改意见",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/generation.FeedbackRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "成功响应",
                        "schema": {
                            "type": "object",
                            "additionalProperties": true
                        }
                    },
                    "400": {
                        "description": "请求参数错误",
                        "schema": {
                            "$ref": "#/definitions/http.ErrorResponse"
                        }
                    },
                    "409": {
                        "description": "当前阶段不允许",
                        "schema": {
                            "$ref": "#/definitions/http.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/v1/generations/{id}/story/regenerate": {
            "post": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "故事"
                ],
                "summary": "重新生成故事",
                "parameters": [
                    {
                        "type": "string",
                        "description": "创作ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "description": "修改意见",
                        "name": "request",
                        "in": "body",
                        "required": false,
                        "schema": {
                            "$ref": "#/definitions/generation.FeedbackRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "成功响应",
                        "schema": {
                            "type": "object",
                            "additionalProperties": true
                        }
                    },
                    "404": {
                        "description": "创作不存在",
                        "schema": {
                            "$ref": "#/definitions/http.ErrorResponse"
                        }
                    },
                    "409": {
                        "description": "当前阶段不允许",
                        "schema": {
                            "$ref": "#/definitions/http.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/v1/generations/{id}/story/selected-beat": {
            "put": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "故事"
                ],
                "summary": "选中节拍",
                "parameters": [
                    {
                        "type": "string",
                        "description": "创作ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "description": "节拍编号",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/generation.SelectBeatRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "成功响应",
                        "schema": {
                            "type": "object",
                            "additionalProperties": true
                        }
                    },
                    "400": {
                        "description": "请求参数错误",
                        "schema": {
                            "$ref": "#/definitions/http.ErrorResponse"
                        }
                    }
                }
            }
        }
    },
    "definitions": {
        "generation.ChangeProtagonistRequest": {
            "type": "object",
            "properties": {
                "confirmed": {
                    "description": "已有下游素材时必须为 true",
                    "type": "boolean"
                },
                "feedback": {
                    "description": "修改意见",
                    "type": "string"
                }
            }
        },
        "generation.CreateRequest": {
            "type": "object",
            "properties": {
                "style": {
                    "description": "画面风格：cinematic、3d_animated、2d_animated，默认 cinematic",
                    "type": "string"
                },
                "title": {
                    "description": "标题（可选）",
                    "type": "string"
                }
            }
        },
        "generation.FeedbackRequest": {
            "type": "object",
            "properties": {
                "feedback": {
                    "description": "修改意见（可选）",
                    "type": "string"
                }
            }
        },
        "generation.SelectBeatRequest": {
            "type": "object",
            "required": [
                "beat_number"
            ],
            "properties": {
                "beat_number": {
                    "description": "节拍编号",
                    "type": "integer",
                    "minimum": 1
                }
            }
        },
        "generation.SubmitIdeaRequest": {
            "type": "object",
            "required": [
                "idea"
            ],
            "properties": {
                "duration": {
                    "description": "时长：1、2、3 分钟",
                    "type": "string"
                },
                "idea": {
                    "description": "故事创意",
                    "type": "string"
                },
                "style": {
                    "description": "画面风格",
                    "type": "string"
                }
            }
        },
        "http.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {
                    "description": "错误码（非0表示错误）",
                    "type": "integer"
                },
                "detail": {
                    "description": "错误详情（可选）",
                    "type": "string"
                },
                "message": {
                    "description": "错误消息",
                    "type": "string"
                }
            }
        }
    }
}`

// SwaggerInfo 文档元信息，服务启动时可修改
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Reel API",
	Description:      "Story to film generation pipeline.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
